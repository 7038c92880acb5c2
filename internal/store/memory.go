package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jobharbor/harvest/pkg/models"
)

// Memory is an in-process Store implementation.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.JobRecord
	nextID  int

	// FailWrites makes mutating calls return this error, for exercising the
	// coordinator's store-error accounting.
	FailWrites error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.JobRecord)}
}

func (f Filter) matches(r models.JobRecord) bool {
	if f.ExternalID != "" && r.ExternalID != f.ExternalID {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.URL != "" && r.URL != f.URL {
		return false
	}
	if f.TitleNormalized != "" && r.TitleNormalized != f.TitleNormalized {
		return false
	}
	if f.CompanyNormalized != "" && r.CompanyNormalized != f.CompanyNormalized {
		return false
	}
	if f.ContentHash != "" && r.ContentHash != f.ContentHash {
		return false
	}
	if f.IsActive != nil && r.IsActive != *f.IsActive {
		return false
	}
	return true
}

// FindOne returns the first record matching the filter, or (nil, nil).
func (m *Memory) FindOne(_ context.Context, f Filter) (*models.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.JobRecord
	for _, r := range m.records {
		if !f.matches(r) {
			continue
		}
		r := r
		if best == nil || r.CreatedAt.Before(best.CreatedAt) {
			best = &r
		}
	}
	return best, nil
}

// FindTopN returns up to n matching records, most recently created first.
func (m *Memory) FindTopN(_ context.Context, f Filter, n int) ([]models.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.JobRecord
	for _, r := range m.records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// List returns all active records.
func (m *Memory) List(_ context.Context) ([]models.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.JobRecord, 0, len(m.records))
	for _, r := range m.records {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Insert stores a new record and returns its id.
func (m *Memory) Insert(_ context.Context, rec *models.JobRecord) (string, error) {
	if m.FailWrites != nil {
		return "", m.FailWrites
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec.ID = fmt.Sprintf("mem-%d", m.nextID)
	m.records[rec.ID] = *rec
	return rec.ID, nil
}

// UpdateByID applies the fixed field subset to an existing record.
func (m *Memory) UpdateByID(_ context.Context, id string, u FieldUpdate) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	if u.Description != "" {
		r.Description = u.Description
	}
	if u.Requirements != "" {
		r.Requirements = u.Requirements
	}
	if u.Salary != "" {
		r.Salary = u.Salary
	}
	if u.ApplyURL != "" {
		r.ApplyURL = u.ApplyURL
	}
	if u.URL != "" {
		r.URL = u.URL
	}
	r.UpdatedAt = u.UpdatedAt
	m.records[id] = r
	return nil
}

// Upsert inserts the record, or updates the record matching the filter.
func (m *Memory) Upsert(ctx context.Context, f Filter, rec *models.JobRecord) (string, error) {
	if m.FailWrites != nil {
		return "", m.FailWrites
	}

	existing, _ := m.FindOne(ctx, f)
	if existing == nil {
		return m.Insert(ctx, rec)
	}
	err := m.UpdateByID(ctx, existing.ID, FieldUpdate{
		Description:  rec.Description,
		Requirements: rec.Requirements,
		Salary:       rec.Salary,
		ApplyURL:     rec.ApplyURL,
		URL:          rec.URL,
		UpdatedAt:    rec.UpdatedAt,
	})
	return existing.ID, err
}

// DeleteByID removes a record.
func (m *Memory) DeleteByID(_ context.Context, id string) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Count returns how many records match the filter.
func (m *Memory) Count(_ context.Context, f Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.records {
		if f.matches(r) {
			n++
		}
	}
	return n, nil
}

// Get returns a record by id, for test assertions.
func (m *Memory) Get(id string) (models.JobRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}
