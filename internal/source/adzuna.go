package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/quota"
	"github.com/jobharbor/harvest/pkg/models"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50

	// Free-tier allowance; the ledger enforces it across restarts.
	adzunaMaxRequests = 250
	adzunaWindowDays  = 30
)

// Adzuna fetches listings from the Adzuna aggregator API.
type Adzuna struct {
	baseURL string
	appID   string
	appKey  string
	country string // "us", "gb", "de", ...
	what    string // search terms
	client  *http.Client
	ledger  *quota.Ledger
}

// NewAdzuna constructs the client and registers its limits with the ledger.
func NewAdzuna(ctx context.Context, ledger *quota.Ledger, client *http.Client, appID, appKey, country, what string) *Adzuna {
	ledger.Register(ctx, "adzuna", adzunaMaxRequests, adzunaWindowDays)
	return &Adzuna{
		baseURL: adzunaBaseURL,
		appID:   appID,
		appKey:  appKey,
		country: country,
		what:    what,
		client:  client,
		ledger:  ledger,
	}
}

// Name returns the provider identifier.
func (a *Adzuna) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []map[string]interface{} `json:"results"`
	Count   int                      `json:"count"`
}

// adzunaFields narrows the default table to Adzuna's key spellings, nested
// display objects included.
var adzunaFields = FieldTable{
	Title:       []string{"title", "job_title"},
	Company:     []string{"company"},
	Location:    []string{"location"},
	Description: []string{"description"},
	URL:         []string{"redirect_url", "url"},
	Salary:      []string{"salary_min", "salary"},
	JobType:     []string{"contract_type", "contract_time"},
	PostedDate:  []string{"created"},
	ExternalID:  []string{"id"},
}

// Fetch retrieves up to limit candidates, paging until the limit or the
// end of results. Each page is one ledger-counted request.
func (a *Adzuna) Fetch(ctx context.Context, limit int) ([]models.JobCandidate, error) {
	if a.appID == "" || a.appKey == "" {
		log.Warn().Msg("adzuna credentials not configured, skipping source")
		return nil, nil
	}

	var out []models.JobCandidate
	for page := 1; len(out) < limit; page++ {
		if !a.ledger.CanMakeRequest(a.Name()) {
			log.Info().
				Str("source", a.Name()).
				Int("collected", len(out)).
				Msg("quota window exhausted, stopping fetch")
			return out, nil
		}

		batch, err := a.fetchPage(ctx, page)
		if err != nil {
			// Partial results from earlier pages are still worth keeping.
			return out, err
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, page int) ([]models.JobCandidate, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.baseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", a.what)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	a.ledger.RecordRequest(ctx, a.Name())

	status, body, err := httpGet(ctx, a.client, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, classifyFailure(ctx, a.ledger, a.Name(), status, err.Error())
	}
	if status != http.StatusOK {
		return nil, classifyFailure(ctx, a.ledger, a.Name(), status, string(body))
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, classifyFailure(ctx, a.ledger, a.Name(), status, "json unmarshal: "+err.Error())
	}

	out := make([]models.JobCandidate, 0, len(resp.Results))
	for _, obj := range resp.Results {
		if cand, ok := MapCandidate(obj, adzunaFields, a.Name()); ok {
			out = append(out, cand)
		}
	}

	log.Debug().
		Str("source", a.Name()).
		Int("page", page).
		Int("candidates", len(out)).
		Dur("window_reset_in", time.Until(orNow(a.ledger.NextResetDate(a.Name())))).
		Msg("adzuna page fetched")
	return out, nil
}

func orNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}
