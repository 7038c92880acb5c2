package source

import (
	"testing"
	"time"
)

func TestPickPrefersEarlierAlternates(t *testing.T) {
	obj := map[string]interface{}{
		"job_title": "Fallback Title",
		"title":     "Primary Title",
	}
	if got := pick(obj, DefaultFieldTable().Title); got != "Primary Title" {
		t.Fatalf("pick = %q, want the first listed key to win", got)
	}
}

func TestPickSkipsEmptyValues(t *testing.T) {
	obj := map[string]interface{}{
		"title":     "   ",
		"job_title": "Real Title",
	}
	if got := pick(obj, DefaultFieldTable().Title); got != "Real Title" {
		t.Fatalf("pick = %q, want blank values skipped", got)
	}
}

func TestPickUnwrapsDisplayObjects(t *testing.T) {
	obj := map[string]interface{}{
		"company": map[string]interface{}{"display_name": "Acme Corp"},
	}
	if got := pick(obj, DefaultFieldTable().Company); got != "Acme Corp" {
		t.Fatalf("pick = %q", got)
	}
}

func TestPickFormatsNumericIDs(t *testing.T) {
	obj := map[string]interface{}{"id": float64(9001)}
	if got := pick(obj, DefaultFieldTable().ExternalID); got != "9001" {
		t.Fatalf("pick = %q, want integer formatting without exponent", got)
	}
}

func TestMapCandidateRequiresTitle(t *testing.T) {
	obj := map[string]interface{}{"company": "Acme", "url": "https://a.example"}
	if _, ok := MapCandidate(obj, DefaultFieldTable(), "src"); ok {
		t.Fatal("candidate without any title key should be rejected")
	}
}

func TestMapCandidateParsesDates(t *testing.T) {
	cases := map[string]string{
		"rfc3339":   "2026-08-15T12:00:00Z",
		"bare-time": "2026-08-15T12:00:00",
		"date-only": "2026-08-15",
	}
	for name, raw := range cases {
		obj := map[string]interface{}{"title": "Engineer", "posted_date": raw}
		cand, ok := MapCandidate(obj, DefaultFieldTable(), "src")
		if !ok {
			t.Fatalf("%s: candidate rejected", name)
		}
		if cand.PostedDate == nil {
			t.Fatalf("%s: date %q not parsed", name, raw)
		}
		want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
		if cand.PostedDate.Year() != want.Year() || cand.PostedDate.Month() != want.Month() || cand.PostedDate.Day() != want.Day() {
			t.Fatalf("%s: parsed %v", name, cand.PostedDate)
		}
	}
}

func TestMapCandidateUnparseableDateLeftNil(t *testing.T) {
	obj := map[string]interface{}{"title": "Engineer", "posted_date": "three days ago"}
	cand, ok := MapCandidate(obj, DefaultFieldTable(), "src")
	if !ok {
		t.Fatal("candidate rejected")
	}
	if cand.PostedDate != nil {
		t.Fatalf("PostedDate = %v, want nil for unparseable input", cand.PostedDate)
	}
}
