// Package notify publishes run summaries. The coordinator always emits a
// summary, so sinks must tolerate partially failed runs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/pkg/models"
)

// Sink receives the summary of a completed ingestion run.
type Sink interface {
	Publish(ctx context.Context, summary models.RunSummary) error
}

// LogSink writes the summary to the structured log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, summary models.RunSummary) error {
	total := summary.Totals()
	log.Info().
		Time("started_at", summary.StartedAt).
		Time("finished_at", summary.FinishedAt).
		Int("sources", len(summary.Sources)).
		Int("fetched", total.FetchedCount).
		Int("new", total.NewCount).
		Int("updated", total.UpdatedCount).
		Int("duplicates", total.DuplicateCount).
		Int("errors", total.ErrorCount).
		Msg("ingestion run complete")
	return nil
}

// WebhookSink POSTs the summary as JSON to a configured endpoint.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

func (w *WebhookSink) Publish(ctx context.Context, summary models.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MultiSink fans the summary out to every sink. All sinks are attempted;
// the first error is returned.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, summary models.RunSummary) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, summary); err != nil {
			log.Warn().Err(err).Msg("summary sink failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// FormatText renders the summary as an aligned table for terminal output.
func FormatText(summary models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %8s %6s %8s %6s %6s\n", "SOURCE", "FETCHED", "NEW", "UPDATED", "DUPES", "ERRORS")
	for _, st := range summary.Sources {
		fmt.Fprintf(&b, "%-24s %8d %6d %8d %6d %6d\n",
			st.Source, st.FetchedCount, st.NewCount, st.UpdatedCount, st.DuplicateCount, st.ErrorCount)
	}
	total := summary.Totals()
	fmt.Fprintf(&b, "%-24s %8d %6d %8d %6d %6d\n",
		"total", total.FetchedCount, total.NewCount, total.UpdatedCount, total.DuplicateCount, total.ErrorCount)
	fmt.Fprintf(&b, "elapsed: %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(10*time.Millisecond))
	return b.String()
}
