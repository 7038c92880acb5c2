package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/jobharbor/harvest/pkg/models"
)

// FieldTable is an ordered list of alternate key names per candidate field.
// First present key wins, so a new provider's response shape is handled by
// data rather than a new code path.
type FieldTable struct {
	Title       []string
	Company     []string
	Location    []string
	Description []string
	URL         []string
	Salary      []string
	JobType     []string
	PostedDate  []string
	ExternalID  []string
}

// DefaultFieldTable covers the key spellings seen across aggregator APIs.
func DefaultFieldTable() FieldTable {
	return FieldTable{
		Title:       []string{"title", "job_title", "jobTitle", "name", "position"},
		Company:     []string{"company", "company_name", "companyName", "employer", "organization"},
		Location:    []string{"location", "candidate_required_location", "city", "place"},
		Description: []string{"description", "job_description", "content", "snippet", "summary"},
		URL:         []string{"url", "redirect_url", "apply_url", "link", "job_url"},
		Salary:      []string{"salary", "salary_range", "compensation", "pay"},
		JobType:     []string{"job_type", "jobType", "contract_type", "employment_type", "type"},
		PostedDate:  []string{"posted_date", "publication_date", "created", "date_posted", "posted_at"},
		ExternalID:  []string{"id", "job_id", "external_id", "reference"},
	}
}

// pick returns the first non-empty string value among the candidate keys.
// Nested display objects ({"display_name": ...}) are unwrapped.
func pick(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			// Numeric ids arrive as JSON numbers.
			return strconv.FormatFloat(val, 'f', -1, 64)
		case map[string]interface{}:
			for _, nk := range []string{"display_name", "name", "label"} {
				if nv, ok := val[nk].(string); ok && strings.TrimSpace(nv) != "" {
					return strings.TrimSpace(nv)
				}
			}
		}
	}
	return ""
}

// MapCandidate converts one provider object into a candidate using the
// table. Returns false when no title can be found.
func MapCandidate(obj map[string]interface{}, table FieldTable, sourceName string) (models.JobCandidate, bool) {
	title := pick(obj, table.Title)
	if title == "" {
		return models.JobCandidate{}, false
	}

	c := models.JobCandidate{
		Title:       title,
		Company:     pick(obj, table.Company),
		Location:    pick(obj, table.Location),
		Description: pick(obj, table.Description),
		URL:         pick(obj, table.URL),
		ApplyURL:    pick(obj, table.URL),
		Salary:      pick(obj, table.Salary),
		JobType:     pick(obj, table.JobType),
		Source:      sourceName,
		ExternalID:  pick(obj, table.ExternalID),
	}

	if raw := pick(obj, table.PostedDate); raw != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, raw); err == nil {
				c.PostedDate = &ts
				break
			}
		}
	}

	return c, true
}
