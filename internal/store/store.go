// Package store defines the document-store port the pipeline writes through,
// with a Postgres implementation for production and an in-memory one for
// tests and the batch dedupe dry path.
package store

import (
	"context"
	"time"

	"github.com/jobharbor/harvest/pkg/models"
)

// Filter selects records by exact field match. Zero-valued fields are
// ignored; set fields are ANDed together.
type Filter struct {
	ExternalID        string
	Source            string
	URL               string
	TitleNormalized   string
	CompanyNormalized string
	ContentHash       string
	IsActive          *bool
}

// FieldUpdate is the fixed subset of columns a duplicate verdict is allowed
// to refresh on an existing record.
type FieldUpdate struct {
	Description  string
	Requirements string
	Salary       string
	ApplyURL     string
	URL          string
	UpdatedAt    time.Time
}

// Store is the persistence port for job records.
type Store interface {
	// FindOne returns the first record matching the filter, or (nil, nil)
	// when nothing matches.
	FindOne(ctx context.Context, f Filter) (*models.JobRecord, error)

	// FindTopN returns up to n matching records, most recently created first.
	FindTopN(ctx context.Context, f Filter, n int) ([]models.JobRecord, error)

	// List returns all active records. Used by the batch duplicate sweep.
	List(ctx context.Context) ([]models.JobRecord, error)

	// Insert stores a new record and returns its id.
	Insert(ctx context.Context, rec *models.JobRecord) (string, error)

	// UpdateByID applies the fixed field subset to an existing record.
	UpdateByID(ctx context.Context, id string, u FieldUpdate) error

	// Upsert inserts the record, or updates the record matching the filter.
	Upsert(ctx context.Context, f Filter, rec *models.JobRecord) (string, error)

	// DeleteByID removes a record.
	DeleteByID(ctx context.Context, id string) error

	// Count returns how many records match the filter.
	Count(ctx context.Context, f Filter) (int, error)
}
