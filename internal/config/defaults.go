package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel        = "info"
	DefaultJSONLog         = false
	DefaultUserAgent       = "Harvest/1.0 (+https://github.com/jobharbor/harvest)"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultMinHostDelay    = 2 * time.Second
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 128
	DefaultConcurrency     = 5
	DefaultMaxConcurrency  = 50
	DefaultFetchLimit      = 100
	DefaultCronSpec        = "@every 6h"
	DefaultAdzunaCountry   = "us"
	DefaultAdzunaSearch    = "software engineer"
)
