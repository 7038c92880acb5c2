// Package ratelimit serializes requests per registrable domain so crawls of
// the same employer are spaced by a minimum delay while distinct hosts
// proceed in parallel.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Limiter is the interface the crawler blocks on before each fetch.
type Limiter interface {
	// Wait blocks until a request for the given URL may proceed.
	// Returns an error only when the context is cancelled first.
	Wait(ctx context.Context, urlStr string) error

	// Allow reports whether a request could proceed immediately.
	Allow(urlStr string) bool
}

// HostLimiter applies a token-bucket limit per registrable domain
// (eTLD+1), so "jobs.acme.com" and "careers.acme.com" share one budget.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter enforcing the given minimum delay between
// requests to the same domain.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Every(minDelay),
		burst:    1, // strict serialization: one request per delay interval
	}
}

// Wait blocks until the request for the given URL can proceed.
func (hl *HostLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	domain := registrableDomain(urlStr)
	if domain == "" {
		// Invalid URL, let it proceed (will fail elsewhere)
		return nil
	}
	return hl.getLimiter(domain).Wait(ctx)
}

// Allow checks if a request can proceed immediately without blocking.
func (hl *HostLimiter) Allow(urlStr string) bool {
	domain := registrableDomain(urlStr)
	if domain == "" {
		return true
	}
	return hl.getLimiter(domain).Allow()
}

// getLimiter returns or creates the limiter for a domain.
func (hl *HostLimiter) getLimiter(domain string) *rate.Limiter {
	hl.mu.RLock()
	limiter, exists := hl.limiters[domain]
	hl.mu.RUnlock()
	if exists {
		return limiter
	}

	hl.mu.Lock()
	defer hl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := hl.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(hl.perHost, hl.burst)
	hl.limiters[domain] = limiter
	return limiter
}

// registrableDomain extracts the eTLD+1 for a URL, falling back to the raw
// host when the public suffix list cannot resolve it.
func registrableDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
