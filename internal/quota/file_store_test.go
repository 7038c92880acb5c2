package quota

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobharbor/harvest/pkg/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "quota.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	if q, err := fs.Load(ctx, "adzuna"); err != nil || q != nil {
		t.Fatalf("Load before save = (%v, %v), want (nil, nil)", q, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	in := &models.SourceQuota{
		SourceName:          "adzuna",
		WindowDays:          30,
		MaxRequests:         250,
		RequestTimestamps:   []time.Time{now},
		DisabledEndpoints:   map[string]string{"search": "gone"},
		QuotaExceededMonths: map[string]struct{}{"2026-08": {}},
	}
	if err := fs.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store over the same path sees the persisted state.
	fs2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	out, err := fs2.Load(ctx, "adzuna")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out == nil {
		t.Fatal("state did not survive reopen")
	}
	if out.MaxRequests != 250 || len(out.RequestTimestamps) != 1 {
		t.Fatalf("restored state = %+v", out)
	}
	if !out.RequestTimestamps[0].Equal(now) {
		t.Fatalf("timestamp = %v, want %v", out.RequestTimestamps[0], now)
	}
	if out.DisabledEndpoints["search"] != "gone" {
		t.Fatalf("disabled endpoints = %v", out.DisabledEndpoints)
	}
	if _, ok := out.QuotaExceededMonths["2026-08"]; !ok {
		t.Fatalf("month flags = %v", out.QuotaExceededMonths)
	}
}

func TestFileStoreKeepsOtherSources(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "quota.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	for _, name := range []string{"adzuna", "boardx"} {
		if err := fs.Save(ctx, &models.SourceQuota{SourceName: name, MaxRequests: 10}); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	q, err := fs.Load(ctx, "adzuna")
	if err != nil || q == nil {
		t.Fatalf("Load adzuna = (%v, %v)", q, err)
	}
	q, err = fs.Load(ctx, "boardx")
	if err != nil || q == nil {
		t.Fatalf("Load boardx = (%v, %v)", q, err)
	}
}
