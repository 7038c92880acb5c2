// Package dedup decides whether an incoming candidate is already stored,
// cascading identity-strength-ordered match strategies with fuzzy comparison
// last, and gates store mutations on the verdict's confidence.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/normalize"
	"github.com/jobharbor/harvest/internal/store"
	"github.com/jobharbor/harvest/pkg/models"
)

const (
	// fuzzyTopN bounds the fuzzy pass to the most recent same-company
	// records. A deliberate latency/recall trade-off: near-simultaneous
	// inserts of the same job can briefly coexist and are reconciled by
	// the batch sweep.
	fuzzyTopN = 10

	fuzzyThreshold = 0.85
	fuzzyHighBand  = 0.95

	titleWeight       = 0.7
	descriptionWeight = 0.3
)

// Engine runs the matching cascade against the store.
type Engine struct {
	store store.Store
	now   func() time.Time
}

// NewEngine creates an engine over the given store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// Check runs the strategy cascade for one candidate. First match wins.
func (e *Engine) Check(ctx context.Context, cand models.JobCandidate) (models.Verdict, error) {
	titleNorm := normalize.Text(cand.Title)
	companyNorm := normalize.Text(cand.Company)
	description := normalize.CleanDescription(cand.Description)
	contentHash := normalize.ContentHash(cand.Title, cand.Company, description)

	// 1. Provider identity: external id scoped to its source.
	if cand.ExternalID != "" && cand.Source != "" {
		match, err := e.store.FindOne(ctx, store.Filter{ExternalID: cand.ExternalID, Source: cand.Source})
		if err != nil {
			return models.Verdict{}, fmt.Errorf("external id lookup: %w", err)
		}
		if match != nil {
			return verdict(match.ID, 1.0, models.ReasonExternalID, models.ConfidenceHigh), nil
		}
	}

	// 2. Exact URL.
	if cand.URL != "" {
		match, err := e.store.FindOne(ctx, store.Filter{URL: cand.URL})
		if err != nil {
			return models.Verdict{}, fmt.Errorf("url lookup: %w", err)
		}
		if match != nil {
			return verdict(match.ID, 1.0, models.ReasonURL, models.ConfidenceHigh), nil
		}
	}

	// 3. Normalized title + company.
	if titleNorm != "" && companyNorm != "" {
		match, err := e.store.FindOne(ctx, store.Filter{TitleNormalized: titleNorm, CompanyNormalized: companyNorm})
		if err != nil {
			return models.Verdict{}, fmt.Errorf("title+company lookup: %w", err)
		}
		if match != nil {
			return verdict(match.ID, 0.95, models.ReasonTitleCompany, models.ConfidenceHigh), nil
		}
	}

	// 4. Content hash.
	match, err := e.store.FindOne(ctx, store.Filter{ContentHash: contentHash})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("content hash lookup: %w", err)
	}
	if match != nil {
		return verdict(match.ID, 0.95, models.ReasonContentHash, models.ConfidenceHigh), nil
	}

	// 5. Fuzzy, bounded to the most recent same-company records.
	if companyNorm != "" {
		recent, err := e.store.FindTopN(ctx, store.Filter{CompanyNormalized: companyNorm}, fuzzyTopN)
		if err != nil {
			return models.Verdict{}, fmt.Errorf("fuzzy window lookup: %w", err)
		}

		bestScore := 0.0
		bestID := ""
		for _, rec := range recent {
			score := combinedScore(titleNorm, description, rec)
			if score > bestScore {
				bestScore = score
				bestID = rec.ID
			}
		}

		if bestScore >= fuzzyThreshold {
			conf := models.ConfidenceMedium
			if bestScore >= fuzzyHighBand {
				conf = models.ConfidenceHigh
			}
			return verdict(bestID, bestScore, models.ReasonFuzzy, conf), nil
		}
	}

	// 6. No match.
	return models.Verdict{IsDuplicate: false, Reason: models.ReasonNoMatch}, nil
}

// Save checks the candidate and applies the verdict's store decision:
// insert when new, refresh the fixed field subset on a medium/high duplicate,
// and leave the stored record untouched on a low-confidence duplicate.
// Returns the id of the inserted or matched record.
func (e *Engine) Save(ctx context.Context, cand models.JobCandidate) (string, models.Verdict, error) {
	v, err := e.Check(ctx, cand)
	if err != nil {
		return "", v, err
	}
	id, err := e.Apply(ctx, cand, v)
	return id, v, err
}

// Apply executes the save decision for an already-computed verdict.
func (e *Engine) Apply(ctx context.Context, cand models.JobCandidate, v models.Verdict) (string, error) {
	if !v.IsDuplicate {
		now := e.now()
		rec := models.JobRecord{
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
		}
		normalize.Apply(&rec, cand)
		id, err := e.store.Insert(ctx, &rec)
		if err != nil {
			return "", fmt.Errorf("insert candidate: %w", err)
		}
		return id, nil
	}

	if v.Confidence == models.ConfidenceLow {
		// The match is reported for visibility, but a weak signal must
		// never overwrite good data.
		log.Debug().
			Str("matched_id", v.MatchedRecordID).
			Float64("score", v.SimilarityScore).
			Msg("low confidence duplicate, record left untouched")
		return v.MatchedRecordID, nil
	}

	err := e.store.UpdateByID(ctx, v.MatchedRecordID, store.FieldUpdate{
		Description: normalize.CleanDescription(cand.Description),
		Salary:      cand.Salary,
		ApplyURL:    cand.ApplyURL,
		URL:         cand.URL,
		UpdatedAt:   e.now(),
	})
	if err != nil {
		return "", fmt.Errorf("refresh matched record: %w", err)
	}
	return v.MatchedRecordID, nil
}

// CleanupStats aggregates one batch duplicate sweep.
type CleanupStats struct {
	Scanned           int `json:"scanned"`
	Groups            int `json:"groups"`
	RemovedDuplicates int `json:"removed_duplicates"`
}

// FindAndRemoveDuplicates sweeps the stored records, pairwise-comparing
// within each company group with the same cascade in memory. The earliest
// created record of a duplicate cluster is always kept; later ones are
// removed.
func (e *Engine) FindAndRemoveDuplicates(ctx context.Context) (CleanupStats, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return CleanupStats{}, fmt.Errorf("list records: %w", err)
	}

	stats := CleanupStats{Scanned: len(records)}

	groups := make(map[string][]models.JobRecord)
	for _, r := range records {
		groups[r.CompanyNormalized] = append(groups[r.CompanyNormalized], r)
	}
	stats.Groups = len(groups)

	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})

		removed := make(map[string]bool)
		for i := 0; i < len(group); i++ {
			if removed[group[i].ID] {
				continue
			}
			for j := i + 1; j < len(group); j++ {
				if removed[group[j].ID] {
					continue
				}
				if !recordsMatch(group[i], group[j]) {
					continue
				}
				if err := e.store.DeleteByID(ctx, group[j].ID); err != nil {
					log.Error().Err(err).Str("id", group[j].ID).Msg("failed to remove duplicate")
					continue
				}
				removed[group[j].ID] = true
				stats.RemovedDuplicates++
			}
		}
	}

	log.Info().
		Int("scanned", stats.Scanned).
		Int("groups", stats.Groups).
		Int("removed", stats.RemovedDuplicates).
		Msg("duplicate sweep completed")
	return stats, nil
}

// recordsMatch applies the cascade to two stored records in memory.
func recordsMatch(a, b models.JobRecord) bool {
	if a.ExternalID != "" && a.ExternalID == b.ExternalID && a.Source == b.Source {
		return true
	}
	if a.URL != "" && a.URL == b.URL {
		return true
	}
	if a.TitleNormalized != "" && a.TitleNormalized == b.TitleNormalized &&
		a.CompanyNormalized == b.CompanyNormalized {
		return true
	}
	if a.ContentHash != "" && a.ContentHash == b.ContentHash {
		return true
	}
	score := titleWeight*similarityRatio(a.TitleNormalized, b.TitleNormalized) +
		descriptionWeight*similarityRatio(a.Description, b.Description)
	return score >= fuzzyThreshold
}

// combinedScore weighs title and description similarity for the fuzzy pass.
func combinedScore(titleNorm, description string, rec models.JobRecord) float64 {
	return titleWeight*similarityRatio(titleNorm, rec.TitleNormalized) +
		descriptionWeight*similarityRatio(description, rec.Description)
}

func verdict(id string, score float64, reason models.MatchReason, conf models.Confidence) models.Verdict {
	return models.Verdict{
		IsDuplicate:     true,
		MatchedRecordID: id,
		SimilarityScore: score,
		Reason:          reason,
		Confidence:      conf,
	}
}
