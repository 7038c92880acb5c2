package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/jobharbor/harvest/internal/store"
	"github.com/jobharbor/harvest/pkg/models"
)

func candidate() models.JobCandidate {
	return models.JobCandidate{
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: "Design and operate our ingestion services.",
		URL:         "https://jobs.acme.com/42",
		ApplyURL:    "https://jobs.acme.com/42/apply",
		Source:      "acme-careers",
		ExternalID:  "acme-42",
	}
}

func TestSave_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	id1, v1, err := engine.Save(ctx, candidate())
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if v1.IsDuplicate {
		t.Error("first save must not be a duplicate")
	}

	id2, v2, err := engine.Save(ctx, candidate())
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !v2.IsDuplicate {
		t.Fatal("second identical save must be a duplicate")
	}
	if v2.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", v2.Confidence)
	}
	if id1 != id2 {
		t.Errorf("matched id %s != original id %s", id2, id1)
	}

	n, _ := mem.Count(ctx, store.Filter{})
	if n != 1 {
		t.Errorf("expected exactly one stored record, got %d", n)
	}
}

func TestCheck_CascadeOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	if _, _, err := engine.Save(ctx, candidate()); err != nil {
		t.Fatal(err)
	}

	// Same external id + source, everything else different.
	c := candidate()
	c.Title = "Completely Different Role Name"
	c.URL = "https://other.example.com/x"
	v, err := engine.Check(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if v.Reason != models.ReasonExternalID || v.SimilarityScore != 1.0 {
		t.Errorf("verdict = %+v, want external id match at 1.0", v)
	}

	// No external id, same URL.
	c = candidate()
	c.ExternalID = ""
	c.Title = "Another Title Entirely"
	v, err = engine.Check(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if v.Reason != models.ReasonURL {
		t.Errorf("reason = %s, want url match", v.Reason)
	}

	// No identifiers, identical normalized title+company.
	c = candidate()
	c.ExternalID = ""
	c.URL = ""
	c.Title = "Senior Backend Engineer " // trailing space normalizes away
	c.Description = "different text"
	v, err = engine.Check(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if v.Reason != models.ReasonTitleCompany {
		t.Errorf("reason = %s, want title+company match", v.Reason)
	}
	if v.Confidence != models.ConfidenceHigh || v.SimilarityScore != 0.95 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestCheck_ContentHashMatch(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	// A record without a company skips the title+company strategy, so the
	// content hash is what identifies the rematch.
	c := candidate()
	c.Company = ""
	c.ExternalID = ""
	c.URL = ""
	if _, _, err := engine.Save(ctx, c); err != nil {
		t.Fatal(err)
	}

	v, err := engine.Check(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if v.Reason != models.ReasonContentHash {
		t.Errorf("reason = %s, want content hash match", v.Reason)
	}
	if v.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", v.Confidence)
	}
}

func TestCheck_FuzzyMatch(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	if _, _, err := engine.Save(ctx, candidate()); err != nil {
		t.Fatal(err)
	}

	c := candidate()
	c.ExternalID = ""
	c.URL = ""
	c.Title = "Senior Backend Engineer II" // near-identical, not exact
	v, err := engine.Check(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsDuplicate {
		t.Fatal("near-identical same-company title should fuzzy-match")
	}
	if v.Reason != models.ReasonFuzzy {
		t.Errorf("reason = %s, want fuzzy", v.Reason)
	}
	if v.SimilarityScore < fuzzyThreshold {
		t.Errorf("score %f below threshold", v.SimilarityScore)
	}
}

func TestCheck_NoMatch(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(store.NewMemory())

	v, err := engine.Check(ctx, candidate())
	if err != nil {
		t.Fatal(err)
	}
	if v.IsDuplicate || v.Reason != models.ReasonNoMatch {
		t.Errorf("empty store must yield no match, got %+v", v)
	}
}

func TestApply_LowConfidenceNeverMutates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	id, _, err := engine.Save(ctx, candidate())
	if err != nil {
		t.Fatal(err)
	}
	before, _ := mem.Get(id)

	c := candidate()
	c.Description = "A totally different description"
	c.Salary = "$999k"
	low := models.Verdict{
		IsDuplicate:     true,
		MatchedRecordID: id,
		SimilarityScore: 0.8,
		Reason:          models.ReasonFuzzy,
		Confidence:      models.ConfidenceLow,
	}

	matchedID, err := engine.Apply(ctx, c, low)
	if err != nil {
		t.Fatal(err)
	}
	if matchedID != id {
		t.Errorf("matched id should still be reported, got %s", matchedID)
	}

	after, _ := mem.Get(id)
	if after.Description != before.Description || after.Salary != before.Salary {
		t.Error("low-confidence verdict mutated the stored record")
	}
}

func TestApply_MediumConfidenceUpdatesFieldSubset(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	id, _, err := engine.Save(ctx, candidate())
	if err != nil {
		t.Fatal(err)
	}
	before, _ := mem.Get(id)

	c := candidate()
	c.Title = "Senior Backend Engineer II"
	c.Description = "Updated description text"
	c.Salary = "$150k"
	v := models.Verdict{
		IsDuplicate:     true,
		MatchedRecordID: id,
		SimilarityScore: 0.9,
		Reason:          models.ReasonFuzzy,
		Confidence:      models.ConfidenceMedium,
	}

	if _, err := engine.Apply(ctx, c, v); err != nil {
		t.Fatal(err)
	}

	after, _ := mem.Get(id)
	if after.Description != "Updated description text" {
		t.Errorf("description not refreshed: %q", after.Description)
	}
	if after.Salary != "$150k" {
		t.Errorf("salary not refreshed: %q", after.Salary)
	}
	// Identity fields are not part of the update subset.
	if after.Title != before.Title {
		t.Errorf("title must not change on update, got %q", after.Title)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) && !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("updated_at should move forward")
	}
}

func TestFindAndRemoveDuplicates_KeepsEarliest(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := NewEngine(mem)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	insert := func(title, url string, created time.Time) string {
		rec := models.JobRecord{
			Title:             title,
			Company:           "Acme",
			Description:       "Design and operate our ingestion services.",
			URL:               url,
			Source:            "acme-careers",
			TitleNormalized:   "",
			CompanyNormalized: "acme",
			CreatedAt:         created,
			UpdatedAt:         created,
			IsActive:          true,
		}
		rec.TitleNormalized = normalizeForTest(title)
		rec.ContentHash = ""
		id, err := mem.Insert(ctx, &rec)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	keep := insert("Senior Backend Engineer", "https://a/1", base)
	insert("Senior Backend Engineer II", "https://a/2", base.Add(time.Hour))
	insert("Senior Backend Engineer III", "https://a/3", base.Add(2*time.Hour))
	other := insert("Marketing Coordinator", "https://a/4", base.Add(3*time.Hour))

	stats, err := engine.FindAndRemoveDuplicates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RemovedDuplicates != 2 {
		t.Errorf("removed = %d, want 2", stats.RemovedDuplicates)
	}

	if _, ok := mem.Get(keep); !ok {
		t.Error("earliest record must be kept")
	}
	if _, ok := mem.Get(other); !ok {
		t.Error("unrelated record must be kept")
	}
	n, _ := mem.Count(ctx, store.Filter{})
	if n != 2 {
		t.Errorf("expected 2 surviving records, got %d", n)
	}
}

// normalizeForTest mirrors the stored normalization for fixture setup.
func normalizeForTest(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ':
			out = append(out, r)
		}
	}
	return string(out)
}
