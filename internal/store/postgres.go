package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobharbor/harvest/pkg/models"
)

const jobColumns = `id, title, company, location, description, requirements,
	url, apply_url, salary, job_type, posted_date, source, external_id,
	content_hash, title_normalized, company_normalized,
	created_at, updated_at, is_active`

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and verifies connectivity.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the jobs table and its lookup indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS jobs (
		id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title              TEXT NOT NULL,
		company            TEXT NOT NULL,
		location           TEXT NOT NULL DEFAULT '',
		description        TEXT NOT NULL DEFAULT '',
		requirements       TEXT NOT NULL DEFAULT '',
		url                TEXT NOT NULL DEFAULT '',
		apply_url          TEXT NOT NULL DEFAULT '',
		salary             TEXT NOT NULL DEFAULT '',
		job_type           TEXT NOT NULL DEFAULT '',
		posted_date        TIMESTAMPTZ,
		source             TEXT NOT NULL,
		external_id        TEXT NOT NULL DEFAULT '',
		content_hash       TEXT NOT NULL,
		title_normalized   TEXT NOT NULL,
		company_normalized TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		is_active          BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_external   ON jobs (external_id, source);
	CREATE INDEX IF NOT EXISTS idx_jobs_url        ON jobs (url);
	CREATE INDEX IF NOT EXISTS idx_jobs_title_co   ON jobs (title_normalized, company_normalized);
	CREATE INDEX IF NOT EXISTS idx_jobs_hash       ON jobs (content_hash);
	CREATE INDEX IF NOT EXISTS idx_jobs_company_at ON jobs (company_normalized, created_at DESC);`

	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// whereClause builds the WHERE fragment and args for a filter.
func whereClause(f Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if f.ExternalID != "" {
		add("external_id", f.ExternalID)
	}
	if f.Source != "" {
		add("source", f.Source)
	}
	if f.URL != "" {
		add("url", f.URL)
	}
	if f.TitleNormalized != "" {
		add("title_normalized", f.TitleNormalized)
	}
	if f.CompanyNormalized != "" {
		add("company_normalized", f.CompanyNormalized)
	}
	if f.ContentHash != "" {
		add("content_hash", f.ContentHash)
	}
	if f.IsActive != nil {
		add("is_active", *f.IsActive)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	var r models.JobRecord
	err := row.Scan(
		&r.ID, &r.Title, &r.Company, &r.Location, &r.Description, &r.Requirements,
		&r.URL, &r.ApplyURL, &r.Salary, &r.JobType, &r.PostedDate, &r.Source,
		&r.ExternalID, &r.ContentHash, &r.TitleNormalized, &r.CompanyNormalized,
		&r.CreatedAt, &r.UpdatedAt, &r.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindOne returns the earliest-created record matching the filter, or (nil, nil).
func (p *Postgres) FindOne(ctx context.Context, f Filter) (*models.JobRecord, error) {
	where, args := whereClause(f)
	query := "SELECT " + jobColumns + " FROM jobs" + where + " ORDER BY created_at ASC LIMIT 1"

	rec, err := scanJob(p.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}
	return rec, nil
}

// FindTopN returns up to n matching records, most recently created first.
func (p *Postgres) FindTopN(ctx context.Context, f Filter, n int) ([]models.JobRecord, error) {
	where, args := whereClause(f)
	args = append(args, n)
	query := fmt.Sprintf("SELECT %s FROM jobs%s ORDER BY created_at DESC LIMIT $%d",
		jobColumns, where, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find top n: %w", err)
	}
	defer rows.Close()

	var out []models.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// List returns all active records, oldest first.
func (p *Postgres) List(ctx context.Context) ([]models.JobRecord, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE is_active ORDER BY created_at ASC"
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Insert stores a new record and returns its generated id.
func (p *Postgres) Insert(ctx context.Context, rec *models.JobRecord) (string, error) {
	query := `INSERT INTO jobs (
		title, company, location, description, requirements,
		url, apply_url, salary, job_type, posted_date, source, external_id,
		content_hash, title_normalized, company_normalized,
		created_at, updated_at, is_active)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	RETURNING id`

	err := p.pool.QueryRow(ctx, query,
		rec.Title, rec.Company, rec.Location, rec.Description, rec.Requirements,
		rec.URL, rec.ApplyURL, rec.Salary, rec.JobType, rec.PostedDate,
		rec.Source, rec.ExternalID, rec.ContentHash,
		rec.TitleNormalized, rec.CompanyNormalized,
		rec.CreatedAt, rec.UpdatedAt, rec.IsActive,
	).Scan(&rec.ID)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return rec.ID, nil
}

// UpdateByID applies the fixed field subset to an existing record. Empty
// values leave the stored column untouched.
func (p *Postgres) UpdateByID(ctx context.Context, id string, u FieldUpdate) error {
	query := `UPDATE jobs SET
		description  = COALESCE(NULLIF($2,''), description),
		requirements = COALESCE(NULLIF($3,''), requirements),
		salary       = COALESCE(NULLIF($4,''), salary),
		apply_url    = COALESCE(NULLIF($5,''), apply_url),
		url          = COALESCE(NULLIF($6,''), url),
		updated_at   = $7
	WHERE id = $1`

	tag, err := p.pool.Exec(ctx, query, id,
		u.Description, u.Requirements, u.Salary, u.ApplyURL, u.URL, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s not found", id)
	}
	return nil
}

// Upsert inserts the record, or refreshes the record matching the filter.
func (p *Postgres) Upsert(ctx context.Context, f Filter, rec *models.JobRecord) (string, error) {
	existing, err := p.FindOne(ctx, f)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return p.Insert(ctx, rec)
	}
	err = p.UpdateByID(ctx, existing.ID, FieldUpdate{
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
func (p *Postgres) DeleteByID(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// Count returns how many records match the filter.
func (p *Postgres) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}
