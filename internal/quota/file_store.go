package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jobharbor/harvest/pkg/models"
)

// FileStore persists ledger state as one JSON document on disk. Used when no
// Redis is configured; survives process restarts all the same.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path, creating parent directories.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create quota state dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load(_ context.Context, source string) (*models.SourceQuota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return nil, err
	}
	q, ok := all[source]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *FileStore) Save(_ context.Context, q *models.SourceQuota) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return err
	}
	all[q.SourceName] = *q

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	// Write-then-rename so a crash mid-write never corrupts the state file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write quota state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace quota state: %w", err)
	}
	return nil
}

func (f *FileStore) read() (map[string]models.SourceQuota, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]models.SourceQuota{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quota state: %w", err)
	}

	all := map[string]models.SourceQuota{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse quota state: %w", err)
	}
	return all, nil
}
