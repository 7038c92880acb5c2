package quota

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestLedger returns a ledger with a controllable clock.
func newTestLedger(store Store) (*Ledger, *time.Time) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	l := NewLedger(store)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLedger_WindowExhaustion(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLedger(NewMemoryStore())
	l.Register(ctx, "adzuna", 2, 1)

	if !l.CanMakeRequest("adzuna") {
		t.Fatal("fresh source should have capacity")
	}

	l.RecordRequest(ctx, "adzuna")
	l.RecordRequest(ctx, "adzuna")

	if l.CanMakeRequest("adzuna") {
		t.Error("source at max_requests should report no capacity")
	}
	if got := l.RequestsRemaining("adzuna"); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}

	// Third request on the same day still has no capacity.
	*now = now.Add(6 * time.Hour)
	if l.CanMakeRequest("adzuna") {
		t.Error("capacity should stay exhausted within the window")
	}

	// After window_length_days from the earliest timestamp, capacity returns.
	*now = now.Add(20 * time.Hour)
	if !l.CanMakeRequest("adzuna") {
		t.Error("capacity should return once the window slides past the earliest request")
	}
}

func TestLedger_RemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 1, 1)

	l.RecordRequest(ctx, "src")
	l.RecordRequest(ctx, "src") // over-record: remaining must clamp at zero

	if got := l.RequestsRemaining("src"); got != 0 {
		t.Errorf("remaining must never go negative, got %d", got)
	}
}

func TestLedger_NextResetDate(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 5, 2)

	if l.NextResetDate("src") != nil {
		t.Error("empty window should have no reset date")
	}

	first := *now
	l.RecordRequest(ctx, "src")
	*now = now.Add(3 * time.Hour)
	l.RecordRequest(ctx, "src")

	reset := l.NextResetDate("src")
	if reset == nil {
		t.Fatal("expected a reset date")
	}
	want := first.Add(48 * time.Hour)
	if !reset.Equal(want) {
		t.Errorf("reset = %v, want earliest+window = %v", reset, want)
	}
}

func TestLedger_DisableEndpoint(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 100, 1)

	l.DisableEndpoint(ctx, "src", "src", "provider returned endpoint disabled")
	l.DisableEndpoint(ctx, "src", "src", "again") // idempotent

	if l.CanMakeRequest("src") {
		t.Error("disabled source must report no capacity")
	}
}

func TestLedger_DisableEndpointKeyedByEndpoint(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 100, 1)

	l.DisableEndpoint(ctx, "src", "search/v2", "provider returned endpoint disabled")

	if l.CanMakeRequest("src") {
		t.Error("a disabled endpoint must gate its source regardless of the key")
	}
}

func TestLedger_QuotaExceededMonth(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 100, 1)

	l.MarkQuotaExceeded(ctx, "src", l.CurrentMonthKey())
	if l.CanMakeRequest("src") {
		t.Error("month-flagged source must report no capacity")
	}

	// Next month the stale flag is pruned on read.
	*now = now.AddDate(0, 1, 0)
	if !l.CanMakeRequest("src") {
		t.Error("stale month flag should not block the next month")
	}
}

func TestLedger_StateSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	l1, _ := newTestLedger(store)
	l1.Register(ctx, "src", 2, 1)
	l1.RecordRequest(ctx, "src")
	l1.RecordRequest(ctx, "src")

	// Simulate a process restart with the same backing store.
	l2, _ := newTestLedger(store)
	l2.Register(ctx, "src", 2, 1)
	if l2.CanMakeRequest("src") {
		t.Error("persisted window should survive a restart")
	}
}

func TestLedger_PersistenceFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.FailSaves = errors.New("redis down")

	l, _ := newTestLedger(store)
	l.Register(ctx, "src", 5, 1)

	l.RecordRequest(ctx, "src")
	if got := l.RequestsRemaining("src"); got != 4 {
		t.Errorf("in-process decision must not depend on persistence, remaining = %d", got)
	}

	// Persistence recovers: the next write retries and succeeds.
	store.FailSaves = nil
	l.RecordRequest(ctx, "src")
	persisted, err := store.Load(ctx, "src")
	if err != nil || persisted == nil {
		t.Fatalf("expected persisted state after recovery, got %v err=%v", persisted, err)
	}
	if len(persisted.RequestTimestamps) != 2 {
		t.Errorf("expected both timestamps persisted after retry, got %d", len(persisted.RequestTimestamps))
	}
}

func TestLedger_Status(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(NewMemoryStore())
	l.Register(ctx, "src", 3, 1)
	l.RecordRequest(ctx, "src")

	st := l.Status("src")
	if st.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", st.Remaining)
	}
	if st.NextReset == nil {
		t.Error("expected a next reset after one request")
	}
}
