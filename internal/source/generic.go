package source

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/quota"
	"github.com/jobharbor/harvest/pkg/models"
)

// arrayKeys are the envelope keys checked, in order, when the response is an
// object rather than a bare array.
var arrayKeys = []string{"results", "jobs", "data", "items", "listings"}

// Generic pulls listings from any JSON API that returns an array of job
// objects, either bare or wrapped in a single-level envelope. Field names are
// resolved through the ordered alternates table.
type Generic struct {
	name    string
	url     string
	headers map[string]string
	table   FieldTable
	client  *http.Client
	ledger  *quota.Ledger
}

// NewGeneric constructs a provider for one configured JSON endpoint and
// registers its quota with the ledger.
func NewGeneric(ctx context.Context, ledger *quota.Ledger, client *http.Client, name, url string, headers map[string]string, maxRequests, windowDays int) *Generic {
	ledger.Register(ctx, name, maxRequests, windowDays)
	return &Generic{
		name:    name,
		url:     url,
		headers: headers,
		table:   DefaultFieldTable(),
		client:  client,
		ledger:  ledger,
	}
}

// Name returns the configured source identifier.
func (g *Generic) Name() string { return g.name }

// Fetch performs a single quota-counted request and maps whatever job array
// the response carries. A source out of quota returns empty with no I/O.
func (g *Generic) Fetch(ctx context.Context, limit int) ([]models.JobCandidate, error) {
	if !g.ledger.CanMakeRequest(g.name) {
		log.Info().Str("source", g.name).Msg("quota window exhausted, skipping fetch")
		return nil, nil
	}

	g.ledger.RecordRequest(ctx, g.name)

	status, body, err := httpGet(ctx, g.client, g.url, g.headers)
	if err != nil {
		return nil, classifyFailure(ctx, g.ledger, g.name, status, err.Error())
	}
	if status != http.StatusOK {
		return nil, classifyFailure(ctx, g.ledger, g.name, status, string(body))
	}

	items, err := decodeJobArray(body)
	if err != nil {
		return nil, classifyFailure(ctx, g.ledger, g.name, status, err.Error())
	}

	out := make([]models.JobCandidate, 0, len(items))
	for _, obj := range items {
		if len(out) >= limit {
			break
		}
		if cand, ok := MapCandidate(obj, g.table, g.name); ok {
			out = append(out, cand)
		}
	}

	log.Debug().
		Str("source", g.name).
		Int("received", len(items)).
		Int("candidates", len(out)).
		Msg("generic source fetched")
	return out, nil
}

// decodeJobArray accepts either a top-level array or an object whose job
// array lives under one of the common envelope keys.
func decodeJobArray(body []byte) ([]map[string]interface{}, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(body, &arr); err == nil {
		return arr, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	for _, key := range arrayKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr, nil
		}
	}
	return nil, nil
}
