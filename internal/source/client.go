// Package source implements clients for external job providers. Every client
// consults the quota ledger before any network I/O, records exactly one
// request per network attempt, and classifies provider failures back into
// ledger state. A failing source never aborts the run.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jobharbor/harvest/pkg/models"
)

// Client is implemented once per external provider. Each implementation
// fixes its own request limits at construction and registers them with the
// ledger.
type Client interface {
	// Name returns the provider identifier used in ledger and store state.
	Name() string

	// Fetch retrieves up to limit candidates. When the ledger reports no
	// capacity it returns empty without performing or counting a request.
	Fetch(ctx context.Context, limit int) ([]models.JobCandidate, error)
}

// httpGet performs one GET with provider headers and returns status + body.
// The caller has already recorded the request against the ledger.
func httpGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
