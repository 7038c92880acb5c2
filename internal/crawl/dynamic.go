package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Renderer produces the post-JavaScript HTML for a page. Targets flagged
// `render: true` go through it before extraction.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ChromeRenderer renders pages in headless Chrome via chromedp. A fresh
// short-lived browser context is used per page; the coordinator's bounded
// concurrency keeps the process count in check.
type ChromeRenderer struct {
	headless  bool
	userAgent string
	execPath  string
	waitTime  time.Duration
}

// NewChromeRenderer creates a renderer with the given identity. execPath
// overrides chromedp's browser discovery when non-empty.
func NewChromeRenderer(userAgent, execPath string) *ChromeRenderer {
	return &ChromeRenderer{
		headless:  true,
		userAgent: userAgent,
		execPath:  execPath,
		waitTime:  500 * time.Millisecond,
	}
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("single-process", true), // fast shutdown
		chromedp.UserAgent(r.userAgent),
	}
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

// Render navigates to the URL and returns the rendered document HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	start := time.Now()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// Capture the document response status; rendering an error page is a
	// fetch failure, same as the static path.
	var status int64
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && status == 0 {
				status = resp.Response.Status
			}
		}
	})

	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.waitTime), // give client-side lists a beat to mount
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", fmt.Errorf("render %s: document status %d", url, status)
	}

	log.Debug().
		Str("url", url).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Int("bytes", len(html)).
		Msg("page rendered")
	return html, nil
}
