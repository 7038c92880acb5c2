// Package quota tracks per-source request usage against provider-imposed
// limits: a sliding-window request counter, a permanent endpoint-disable
// list, and month-keyed quota-exceeded flags.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/pkg/models"
)

// Store is the persistence port for ledger state. Implementations must
// survive process restarts.
type Store interface {
	// Load retrieves the persisted state for a source.
	// Returns (nil, nil) when the source has no persisted state yet.
	Load(ctx context.Context, source string) (*models.SourceQuota, error)

	// Save persists the full state for a source.
	Save(ctx context.Context, q *models.SourceQuota) error
}

// sourceState guards one source's quota. The mutex makes the
// check-then-act sequence (CanMakeRequest then RecordRequest) atomic for
// concurrent callers of the same source.
type sourceState struct {
	mu    sync.Mutex
	quota models.SourceQuota
	dirty bool // persistence failed, retry on next write
}

// Ledger is the in-process authority over request capacity. Decisions are
// taken against in-memory state; persistence failures are logged and retried
// on the next write, never allowed to block the decision.
type Ledger struct {
	mu      sync.RWMutex
	sources map[string]*sourceState
	store   Store
	now     func() time.Time
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		sources: make(map[string]*sourceState),
		store:   store,
		now:     time.Now,
	}
}

// Register declares a source and its provider limits, loading any persisted
// state. Each SourceClient fixes its own limits at construction and registers
// them here.
func (l *Ledger) Register(ctx context.Context, source string, maxRequests, windowDays int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.sources[source]; exists {
		return
	}

	st := &sourceState{
		quota: models.SourceQuota{
			SourceName:          source,
			WindowDays:          windowDays,
			MaxRequests:         maxRequests,
			DisabledEndpoints:   make(map[string]string),
			QuotaExceededMonths: make(map[string]struct{}),
		},
	}

	if l.store != nil {
		persisted, err := l.store.Load(ctx, source)
		if err != nil {
			log.Warn().Err(err).Str("source", source).Msg("failed to load quota state, starting fresh")
		} else if persisted != nil {
			st.quota.RequestTimestamps = persisted.RequestTimestamps
			for k, v := range persisted.DisabledEndpoints {
				st.quota.DisabledEndpoints[k] = v
			}
			for k := range persisted.QuotaExceededMonths {
				st.quota.QuotaExceededMonths[k] = struct{}{}
			}
		}
	}

	l.sources[source] = st
}

func (l *Ledger) state(source string) *sourceState {
	l.mu.RLock()
	st, ok := l.sources[source]
	l.mu.RUnlock()
	if ok {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok = l.sources[source]; ok {
		return st
	}
	// Unregistered source: unlimited window so callers fail safe toward
	// making the request, matching a source with no declared quota.
	st = &sourceState{
		quota: models.SourceQuota{
			SourceName:          source,
			WindowDays:          1,
			MaxRequests:         int(^uint(0) >> 1),
			DisabledEndpoints:   make(map[string]string),
			QuotaExceededMonths: make(map[string]struct{}),
		},
	}
	l.sources[source] = st
	return st
}

// monthKey formats t as a UTC "YYYY-MM" flag key.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// pruneLocked drops timestamps outside the trailing window and stale month
// flags. Caller holds st.mu.
func (l *Ledger) pruneLocked(st *sourceState) {
	now := l.now()
	cutoff := now.Add(-time.Duration(st.quota.WindowDays) * 24 * time.Hour)

	kept := st.quota.RequestTimestamps[:0]
	for _, ts := range st.quota.RequestTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	st.quota.RequestTimestamps = kept

	current := monthKey(now)
	for m := range st.quota.QuotaExceededMonths {
		if m != current {
			delete(st.quota.QuotaExceededMonths, m)
		}
	}
}

// CanMakeRequest reports whether the source may perform a request right now:
// the rolling-window count is below the limit, no endpoint of the source has
// been permanently disabled, and no quota-exceeded flag exists for the
// current month.
func (l *Ledger) CanMakeRequest(source string) bool {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	l.pruneLocked(st)

	if len(st.quota.DisabledEndpoints) > 0 {
		return false
	}
	if _, exceeded := st.quota.QuotaExceededMonths[monthKey(l.now())]; exceeded {
		return false
	}
	return len(st.quota.RequestTimestamps) < st.quota.MaxRequests
}

// RecordRequest appends the current time to the source's window and persists
// immediately. The caller process may be killed between runs, so the write
// happens before RecordRequest returns.
func (l *Ledger) RecordRequest(ctx context.Context, source string) {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.quota.RequestTimestamps = append(st.quota.RequestTimestamps, l.now())
	l.persistLocked(ctx, st)
}

// RequestsRemaining returns how many requests are left in the current window.
// Never negative.
func (l *Ledger) RequestsRemaining(source string) int {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	l.pruneLocked(st)
	remaining := st.quota.MaxRequests - len(st.quota.RequestTimestamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextResetDate returns when the earliest in-window request falls out of the
// window, or nil when the window is empty.
func (l *Ledger) NextResetDate(source string) *time.Time {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	l.pruneLocked(st)
	if len(st.quota.RequestTimestamps) == 0 {
		return nil
	}
	earliest := st.quota.RequestTimestamps[0]
	for _, ts := range st.quota.RequestTimestamps[1:] {
		if ts.Before(earliest) {
			earliest = ts
		}
	}
	reset := earliest.Add(time.Duration(st.quota.WindowDays) * 24 * time.Hour)
	return &reset
}

// DisableEndpoint permanently disables a source endpoint. Idempotent; requires
// manual reconfiguration to undo.
func (l *Ledger) DisableEndpoint(ctx context.Context, source, endpoint, reason string) {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.quota.DisabledEndpoints[endpoint]; exists {
		return
	}
	st.quota.DisabledEndpoints[endpoint] = reason
	log.Warn().
		Str("source", source).
		Str("endpoint", endpoint).
		Str("reason", reason).
		Msg("endpoint permanently disabled")
	l.persistLocked(ctx, st)
}

// MarkQuotaExceeded flags the source as out of quota for the given month
// ("YYYY-MM"). One flag per month; stale months are pruned on read.
func (l *Ledger) MarkQuotaExceeded(ctx context.Context, source, month string) {
	st := l.state(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.quota.QuotaExceededMonths[month]; exists {
		return
	}
	st.quota.QuotaExceededMonths[month] = struct{}{}
	log.Warn().
		Str("source", source).
		Str("month", month).
		Msg("provider quota exceeded, source paused for the month")
	l.persistLocked(ctx, st)
}

// Status reports remaining capacity and next reset for operational visibility.
func (l *Ledger) Status(source string) models.QuotaStatus {
	return models.QuotaStatus{
		Source:    source,
		Remaining: l.RequestsRemaining(source),
		NextReset: l.NextResetDate(source),
	}
}

// CurrentMonthKey returns the flag key for the present month.
func (l *Ledger) CurrentMonthKey() string {
	return monthKey(l.now())
}

// persistLocked writes the source state through the store. Failures are
// logged and flagged for retry on the next write; they never block the
// in-process decision. Caller holds st.mu.
func (l *Ledger) persistLocked(ctx context.Context, st *sourceState) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, &st.quota); err != nil {
		st.dirty = true
		log.Error().Err(err).Str("source", st.quota.SourceName).Msg("failed to persist quota state, will retry")
		return
	}
	if st.dirty {
		log.Info().Str("source", st.quota.SourceName).Msg("quota state persistence recovered")
		st.dirty = false
	}
}
