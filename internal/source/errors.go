package source

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/pipeline"
	"github.com/jobharbor/harvest/internal/quota"
)

// classifyFailure maps a provider failure into ledger state. Returns the
// classified pipeline error for the run statistics; the run itself continues.
func classifyFailure(ctx context.Context, ledger *quota.Ledger, source string, status int, message string) *pipeline.Error {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "endpoint disabled"):
		ledger.DisableEndpoint(ctx, source, source, message)
		return pipeline.New(pipeline.CodeEndpointDisabled, source, "provider disabled the endpoint", pipeline.ErrEndpointDisabled)

	case status == http.StatusTooManyRequests || strings.Contains(lower, "quota exceeded"):
		ledger.MarkQuotaExceeded(ctx, source, ledger.CurrentMonthKey())
		return pipeline.New(pipeline.CodeQuotaExceeded, source, "provider quota exhausted for this month", pipeline.ErrQuotaExceeded)

	default:
		log.Warn().
			Str("source", source).
			Int("status", status).
			Str("message", truncate(message, 200)).
			Msg("provider request failed")
		return pipeline.New(pipeline.CodeTransient, source, "provider request failed", pipeline.ErrTransientNetwork).WithRetry()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
