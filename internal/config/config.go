package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP/Crawling
	HTTPTimeout  time.Duration
	UserAgent    string
	MinHostDelay time.Duration
	Render       bool
	ChromePath   string

	// Caching
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Pipeline
	Concurrency int
	FetchLimit  int
	CronSpec    string

	// Storage
	DatabaseURL string
	RedisURL    string
	QuotaFile   string

	// Sources
	TargetsFile   string
	AdzunaCountry string
	AdzunaSearch  string

	// Notification
	WebhookURL string
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags. Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:        DefaultLogLevel,
		JSONLog:         DefaultJSONLog,
		HTTPTimeout:     DefaultHTTPTimeout,
		UserAgent:       DefaultUserAgent,
		MinHostDelay:    DefaultMinHostDelay,
		CacheTTL:        DefaultCacheTTL,
		CacheMaxEntries: DefaultCacheMaxEntries,
		Concurrency:     DefaultConcurrency,
		FetchLimit:      DefaultFetchLimit,
		CronSpec:        DefaultCronSpec,
		AdzunaCountry:   DefaultAdzunaCountry,
		AdzunaSearch:    DefaultAdzunaSearch,
	}

	// Override from environment variables
	if v := os.Getenv("HARVEST_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("HARVEST_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("HARVEST_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("HARVEST_QUOTA_FILE"); v != "" {
		cfg.QuotaFile = v
	}
	if v := os.Getenv("HARVEST_TARGETS_FILE"); v != "" {
		cfg.TargetsFile = v
	}
	if v := os.Getenv("HARVEST_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("HARVEST_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("HARVEST_ADZUNA_COUNTRY"); v != "" {
		cfg.AdzunaCountry = v
	}
	if v := os.Getenv("HARVEST_ADZUNA_SEARCH"); v != "" {
		cfg.AdzunaSearch = v
	}
	if v := os.Getenv("HARVEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("HARVEST_CRON_SPEC"); v != "" {
		cfg.CronSpec = v
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("targets"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.TargetsFile = s
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.HTTPTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("host-delay"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.MinHostDelay = d
				}
			}
		}
		if f := cmd.Flags().Lookup("concurrency"); f != nil {
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				cfg.Concurrency = n
			}
		}
		if f := cmd.Flags().Lookup("limit"); f != nil {
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				cfg.FetchLimit = n
			}
		}
		if f := cmd.Flags().Lookup("render"); f != nil {
			if f.Value.String() == "true" {
				cfg.Render = true
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "error"
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
