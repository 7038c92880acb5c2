// Package crawl fetches employer career pages and extracts job candidates,
// dispatching to fixed extractors for known ATS platforms and falling back to
// locator-driven and generic keyword extraction everywhere else. Malformed
// pages degrade to zero candidates; nothing past the Crawl boundary panics.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/pipeline"
	"github.com/jobharbor/harvest/internal/ratelimit"
	"github.com/jobharbor/harvest/internal/retry"
	"github.com/jobharbor/harvest/internal/selector"
	"github.com/jobharbor/harvest/pkg/models"
)

// Crawler fetches and extracts one career page at a time. Safe for
// concurrent use; per-domain pacing is enforced by the limiter.
type Crawler struct {
	client    *http.Client
	limiter   ratelimit.Limiter
	renderer  Renderer
	cache     *pageCache
	retryCfg  retry.Config
	userAgent string
}

// New creates a Crawler. renderer may be nil when headless rendering is
// disabled; `render: true` targets then fall back to the static fetch.
// cacheEntries and cacheTTL bound the per-run page cache; zero values take
// the defaults.
func New(client *http.Client, limiter ratelimit.Limiter, renderer Renderer, userAgent string, cacheEntries int, cacheTTL time.Duration) *Crawler {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Crawler{
		client:    client,
		limiter:   limiter,
		renderer:  renderer,
		cache:     newPageCache(cacheEntries, cacheTTL),
		retryCfg:  retry.DefaultConfig(),
		userAgent: userAgent,
	}
}

// Crawl fetches the target page and returns extracted candidates. A non-nil
// error means the fetch itself failed (retryable next run); extraction
// problems degrade to zero candidates without error.
func (c *Crawler) Crawl(ctx context.Context, target models.CrawlTarget) (candidates []models.JobCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("url", target.URL).
				Interface("panic", r).
				Msg("extraction panicked, page skipped")
			candidates = nil
			err = nil
		}
	}()

	if err := c.limiter.Wait(ctx, target.URL); err != nil {
		return nil, err
	}

	html, err := c.fetchPage(ctx, target)
	if err != nil {
		return nil, pipeline.New(pipeline.CodeTransient, target.Name, "page fetch failed", err).WithRetry()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Str("url", target.URL).Msg("unparseable document, page skipped")
		return nil, nil
	}

	candidates = c.extract(doc, target)

	log.Debug().
		Str("url", target.URL).
		Int("candidates", len(candidates)).
		Msg("crawl completed")
	return candidates, nil
}

// extract runs the extraction tiers in order: platform table, locator config,
// generic selectors, embedded script state.
func (c *Crawler) extract(doc *goquery.Document, target models.CrawlTarget) []models.JobCandidate {
	if p, ok := matchPlatform(target.URL); ok {
		if out := extractPlatform(doc, p, target); len(out) > 0 {
			return dedupeByID(out)
		}
	}

	for _, loc := range target.Locators {
		if out := c.extractWithLocator(doc, loc, target); len(out) > 0 {
			return dedupeByID(out)
		}
	}

	// No locators, or none matched: generic selector sweep.
	if out := c.extractWithSelectors(doc, selector.GenericSelectors, target); len(out) > 0 {
		return dedupeByID(out)
	}

	// Last resort for JS-rendered lists shipped as embedded state.
	return dedupeByID(extractEmbedded(doc, target))
}

func (c *Crawler) extractWithLocator(doc *goquery.Document, loc models.Locator, target models.CrawlTarget) []models.JobCandidate {
	res := selector.Resolve(loc)
	return c.extractWithSelectors(doc, res.Selectors, target)
}

func (c *Crawler) extractWithSelectors(doc *goquery.Document, selectors []string, target models.CrawlTarget) []models.JobCandidate {
	var out []models.JobCandidate
	for _, sel := range selectors {
		matches := findSafe(doc, sel)
		if matches == nil || matches.Length() == 0 {
			continue
		}
		matches.Each(func(_ int, el *goquery.Selection) {
			for _, posting := range postingElements(el) {
				if cand, ok := extractPosting(posting, target); ok {
					out = append(out, cand)
				}
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return out
}

// findSafe shields extraction from invalid selector panics inside cascadia.
func findSafe(doc *goquery.Document, sel string) (s *goquery.Selection) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("selector", sel).Interface("panic", r).Msg("selector rejected")
			s = nil
		}
	}()
	return doc.Find(sel)
}

// fetchPage returns the page HTML, rendered when the target asks for it,
// served from the per-run cache when available.
func (c *Crawler) fetchPage(ctx context.Context, target models.CrawlTarget) (string, error) {
	if html, ok := c.cache.get(target.URL); ok {
		log.Debug().Str("url", target.URL).Msg("page cache hit")
		return html, nil
	}

	var html string
	var err error
	if target.Render && c.renderer != nil {
		html, err = c.renderer.Render(ctx, target.URL)
	} else {
		err = retry.WithRetry(ctx, c.retryCfg, func() error {
			html, err = c.fetchStatic(ctx, target.URL)
			return err
		})
	}
	if err != nil {
		return "", err
	}

	c.cache.set(target.URL, html)
	return html, nil
}

func (c *Crawler) fetchStatic(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", retry.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// dedupeByID drops candidates repeating an external_id within one page.
func dedupeByID(in []models.JobCandidate) []models.JobCandidate {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		if _, dup := seen[c.ExternalID]; dup {
			continue
		}
		seen[c.ExternalID] = struct{}{}
		out = append(out, c)
	}
	return out
}
