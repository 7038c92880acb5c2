package models

import "time"

// JobCandidate represents a freshly extracted, not-yet-deduplicated job listing.
type JobCandidate struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	ApplyURL    string     `json:"apply_url,omitempty"`
	Salary      string     `json:"salary,omitempty"`
	JobType     string     `json:"job_type,omitempty"`
	PostedDate  *time.Time `json:"posted_date,omitempty"`
	Source      string     `json:"source"`
	ExternalID  string     `json:"external_id,omitempty"`
}

// JobRecord is the persisted form of a candidate after normalization.
type JobRecord struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Company           string     `json:"company"`
	Location          string     `json:"location,omitempty"`
	Description       string     `json:"description,omitempty"`
	Requirements      string     `json:"requirements,omitempty"`
	URL               string     `json:"url,omitempty"`
	ApplyURL          string     `json:"apply_url,omitempty"`
	Salary            string     `json:"salary,omitempty"`
	JobType           string     `json:"job_type,omitempty"`
	PostedDate        *time.Time `json:"posted_date,omitempty"`
	Source            string     `json:"source"`
	ExternalID        string     `json:"external_id,omitempty"`
	ContentHash       string     `json:"content_hash"`
	TitleNormalized   string     `json:"title_normalized"`
	CompanyNormalized string     `json:"company_normalized"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	IsActive          bool       `json:"is_active"`
}

// MatchReason identifies which deduplication strategy produced a verdict.
type MatchReason string

const (
	ReasonExternalID   MatchReason = "exact_external_id_match"
	ReasonURL          MatchReason = "url_exact_match"
	ReasonTitleCompany MatchReason = "title_company_exact_match"
	ReasonContentHash  MatchReason = "content_hash_match"
	ReasonFuzzy        MatchReason = "fuzzy_similarity_match"
	ReasonNoMatch      MatchReason = "no_match"
)

// Confidence is the qualitative strength of a dedup match. Only medium and
// high confidence verdicts may mutate an existing record.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Verdict is the outcome of a deduplication check for one candidate.
type Verdict struct {
	IsDuplicate     bool        `json:"is_duplicate"`
	MatchedRecordID string      `json:"matched_record_id,omitempty"`
	SimilarityScore float64     `json:"similarity_score"`
	Reason          MatchReason `json:"reason"`
	Confidence      Confidence  `json:"confidence,omitempty"`
}

// SourceQuota is the persisted per-source usage state.
type SourceQuota struct {
	SourceName          string              `json:"source_name"`
	WindowDays          int                 `json:"window_length_days"`
	MaxRequests         int                 `json:"max_requests"`
	RequestTimestamps   []time.Time         `json:"request_timestamps"`
	DisabledEndpoints   map[string]string   `json:"disabled_endpoints"`    // endpoint -> reason
	QuotaExceededMonths map[string]struct{} `json:"quota_exceeded_months"` // "2026-08"
}

// QuotaStatus is the operational view of a source's remaining capacity.
type QuotaStatus struct {
	Source    string     `json:"source"`
	Remaining int        `json:"remaining"`
	NextReset *time.Time `json:"next_reset,omitempty"`
}

// RunStatistics aggregates the outcome of one ingestion pass for one source.
type RunStatistics struct {
	Source         string        `json:"source"`
	FetchedCount   int           `json:"fetched_count"`
	NewCount       int           `json:"new_count"`
	UpdatedCount   int           `json:"updated_count"`
	DuplicateCount int           `json:"duplicate_count"`
	ErrorCount     int           `json:"error_count"`
	Duration       time.Duration `json:"duration"`
}

// RunSummary is the aggregate outcome of one ingestion run. A run always
// produces a summary, even when every source failed.
type RunSummary struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Sources    []RunStatistics `json:"sources"`
}

// Totals folds the per-source statistics into one row.
func (s RunSummary) Totals() RunStatistics {
	total := RunStatistics{Source: "total", Duration: s.FinishedAt.Sub(s.StartedAt)}
	for _, st := range s.Sources {
		total.FetchedCount += st.FetchedCount
		total.NewCount += st.NewCount
		total.UpdatedCount += st.UpdatedCount
		total.DuplicateCount += st.DuplicateCount
		total.ErrorCount += st.ErrorCount
	}
	return total
}

// SelectorType distinguishes locator expression syntaxes.
type SelectorType string

const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
)

// Locator is one declarative extraction expression from a target config.
type Locator struct {
	Type SelectorType `json:"type" yaml:"type"`
	Expr string       `json:"expr" yaml:"expr"`
}

// CrawlTarget describes one employer career page to crawl.
type CrawlTarget struct {
	Name     string    `json:"name" yaml:"name"`
	URL      string    `json:"url" yaml:"url"`
	Company  string    `json:"company" yaml:"company"`
	Render   bool      `json:"render" yaml:"render"` // headless-render JS-only pages
	Locators []Locator `json:"locators" yaml:"locators"`
}
