package quota

import (
	"context"
	"sync"
	"time"

	"github.com/jobharbor/harvest/pkg/models"
)

// MemoryStore is an in-process Store used by tests and as a degraded
// fallback when no persistent backend is configured.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]models.SourceQuota

	// FailSaves makes Save return this error, for exercising the ledger's
	// persistence-failure path.
	FailSaves error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]models.SourceQuota)}
}

// Load retrieves a copy of the stored state.
func (s *MemoryStore) Load(_ context.Context, source string) (*models.SourceQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.data[source]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

// Save stores a copy of the state.
func (s *MemoryStore) Save(_ context.Context, q *models.SourceQuota) error {
	if s.FailSaves != nil {
		return s.FailSaves
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *q
	cp.RequestTimestamps = append([]time.Time(nil), q.RequestTimestamps...)
	s.data[q.SourceName] = cp
	return nil
}
