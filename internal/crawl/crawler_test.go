package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jobharbor/harvest/internal/ratelimit"
	"github.com/jobharbor/harvest/pkg/models"
)

func newTestCrawler() *Crawler {
	return New(
		&http.Client{Timeout: 5 * time.Second},
		ratelimit.NewHostLimiter(time.Millisecond),
		nil,
		"harvest-test/1.0",
		0, 0,
	)
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCrawl_LocatorExtraction(t *testing.T) {
	server := serve(t, `<!DOCTYPE html>
<html><body>
	<ul id="openings">
		<li class="job-row"><a href="/jobs/1">Backend Engineer</a> Remote</li>
		<li class="job-row"><a href="/jobs/2">Data Scientist</a> Berlin</li>
	</ul>
</body></html>`)

	crawler := newTestCrawler()
	target := models.CrawlTarget{
		Name:    "acme",
		URL:     server.URL,
		Company: "Acme",
		Locators: []models.Locator{
			{Type: models.SelectorCSS, Expr: "#openings"},
		},
	}

	candidates, err := crawler.Crawl(context.Background(), target)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "Backend Engineer" {
		t.Errorf("title = %q", candidates[0].Title)
	}
	if candidates[0].Company != "Acme" {
		t.Errorf("company = %q", candidates[0].Company)
	}
}

func TestCrawl_XPathLocator(t *testing.T) {
	server := serve(t, `<html><body>
	<div class="postings">
		<div class="posting"><a href="/p/1">Senior Frontend Developer</a></div>
		<div class="posting"><a href="/p/2">Engineering Lead</a></div>
	</div>
</body></html>`)

	crawler := newTestCrawler()
	target := models.CrawlTarget{
		Name:    "acme",
		URL:     server.URL,
		Company: "Acme",
		Locators: []models.Locator{
			{Type: models.SelectorXPath, Expr: "//div[@class='postings']"},
		},
	}

	candidates, err := crawler.Crawl(context.Background(), target)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
}

func TestCrawl_UnsupportedXPathFallsBackToGeneric(t *testing.T) {
	server := serve(t, `<html><body>
	<div class="job-listing"><a href="/a">Backend Engineer</a></div>
	<div class="job-listing"><a href="/b">Platform Architect</a></div>
</body></html>`)

	crawler := newTestCrawler()
	target := models.CrawlTarget{
		Name:    "acme",
		URL:     server.URL,
		Company: "Acme",
		Locators: []models.Locator{
			{Type: models.SelectorXPath, Expr: "(//div[@class='a'])[2]"},
		},
	}

	candidates, err := crawler.Crawl(context.Background(), target)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("generic fallback should still find the postings")
	}
}

func TestCrawl_MalformedPageYieldsZero(t *testing.T) {
	server := serve(t, `%PDF-1.4 garbage that is not html at all {{{{`)

	crawler := newTestCrawler()
	target := models.CrawlTarget{Name: "acme", URL: server.URL, Company: "Acme"}

	candidates, err := crawler.Crawl(context.Background(), target)
	if err != nil {
		t.Fatalf("malformed input must not error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected zero candidates, got %d", len(candidates))
	}
}

func TestCrawl_ServerErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	crawler := newTestCrawler()
	target := models.CrawlTarget{Name: "acme", URL: server.URL, Company: "Acme"}

	_, err := crawler.Crawl(context.Background(), target)
	if err == nil {
		t.Fatal("expected a fetch error for HTTP 404")
	}
}

func TestCrawl_PageCacheAvoidsRefetch(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><body><div class="job"><a href="/1">Backend Engineer</a></div></body></html>`))
	}))
	t.Cleanup(server.Close)

	crawler := newTestCrawler()
	target := models.CrawlTarget{Name: "acme", URL: server.URL, Company: "Acme"}

	if _, err := crawler.Crawl(context.Background(), target); err != nil {
		t.Fatalf("first crawl: %v", err)
	}
	if _, err := crawler.Crawl(context.Background(), target); err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 fetch for a repeated URL, got %d", hits)
	}
}

func TestCrawl_CacheConfigHonored(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><body><div class="job"><a href="/1">Backend Engineer</a></div></body></html>`))
	}))
	t.Cleanup(server.Close)

	crawler := New(
		&http.Client{Timeout: 5 * time.Second},
		ratelimit.NewHostLimiter(time.Millisecond),
		nil,
		"harvest-test/1.0",
		16, time.Nanosecond,
	)
	if crawler.cache.maxSize != 16 {
		t.Fatalf("cache maxSize = %d, want configured value 16", crawler.cache.maxSize)
	}

	target := models.CrawlTarget{Name: "acme", URL: server.URL, Company: "Acme"}
	if _, err := crawler.Crawl(context.Background(), target); err != nil {
		t.Fatalf("first crawl: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := crawler.Crawl(context.Background(), target); err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if hits != 2 {
		t.Errorf("expected the entry to expire under a nanosecond TTL, got %d fetches", hits)
	}
}

func TestChromeRendererExecPathOption(t *testing.T) {
	plain := NewChromeRenderer("harvest-test/1.0", "")
	custom := NewChromeRenderer("harvest-test/1.0", "/opt/chromium/chrome")

	if custom.execPath != "/opt/chromium/chrome" {
		t.Fatalf("execPath = %q", custom.execPath)
	}
	if got, want := len(custom.allocatorOptions()), len(plain.allocatorOptions())+1; got != want {
		t.Errorf("allocator options = %d, want %d (browser path appended)", got, want)
	}
}

func TestCrawl_EmbeddedScriptState(t *testing.T) {
	server := serve(t, `<html><body>
	<div id="root"></div>
	<script>
		window.__JOB_DATA__ = [
			{"title": "Machine Learning Engineer", "url": "/ml/1", "location": "Zurich"},
			{"title": "Site Reliability Engineer", "url": "/sre/2"}
		];
	</script>
</body></html>`)

	crawler := newTestCrawler()
	target := models.CrawlTarget{Name: "acme", URL: server.URL, Company: "Acme"}

	candidates, err := crawler.Crawl(context.Background(), target)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 embedded candidates, got %d", len(candidates))
	}
	if candidates[0].Location != "Zurich" {
		t.Errorf("location = %q", candidates[0].Location)
	}
	if candidates[1].Location != "Remote" {
		t.Errorf("missing location should default to Remote, got %q", candidates[1].Location)
	}
}
