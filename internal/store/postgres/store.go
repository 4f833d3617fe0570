// Package postgres implements the listing store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/store"
)

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store on Postgres.
type Store struct {
	db     DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New connects a pool and verifies the connection.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool, logger: logger}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id SERIAL PRIMARY KEY,
	job_id VARCHAR(255) UNIQUE,
	job_name VARCHAR(500) NOT NULL DEFAULT '',
	cust_name VARCHAR(255) NOT NULL DEFAULT '',
	job_url TEXT NOT NULL DEFAULT '',
	job_addr_no_desc VARCHAR(255) NOT NULL DEFAULT '',
	salary_desc VARCHAR(255) NOT NULL DEFAULT '',
	job_detail TEXT NOT NULL DEFAULT '',
	appear_date VARCHAR(50) NOT NULL DEFAULT '',
	job_cat VARCHAR(255) NOT NULL DEFAULT '',
	job_type VARCHAR(255) NOT NULL DEFAULT '',
	work_exp VARCHAR(255) NOT NULL DEFAULT '',
	edu VARCHAR(255) NOT NULL DEFAULT '',
	skill TEXT NOT NULL DEFAULT '',
	benefit TEXT NOT NULL DEFAULT '',
	remote_work BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_job_id ON jobs(job_id);
CREATE INDEX IF NOT EXISTS idx_jobs_job_name ON jobs(job_name);
CREATE INDEX IF NOT EXISTS idx_jobs_cust_name ON jobs(cust_name);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// EnsureSchema creates the jobs table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO jobs (
	job_id, job_name, cust_name, job_url, job_addr_no_desc,
	salary_desc, job_detail, appear_date, job_cat, job_type,
	work_exp, edu, skill, benefit, remote_work, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
ON CONFLICT (job_id) DO UPDATE SET
	job_name = EXCLUDED.job_name,
	cust_name = EXCLUDED.cust_name,
	job_url = EXCLUDED.job_url,
	job_addr_no_desc = EXCLUDED.job_addr_no_desc,
	salary_desc = EXCLUDED.salary_desc,
	job_detail = EXCLUDED.job_detail,
	appear_date = EXCLUDED.appear_date,
	job_cat = EXCLUDED.job_cat,
	job_type = EXCLUDED.job_type,
	work_exp = EXCLUDED.work_exp,
	edu = EXCLUDED.edu,
	skill = EXCLUDED.skill,
	benefit = EXCLUDED.benefit,
	remote_work = EXCLUDED.remote_work,
	updated_at = NOW()`

// Upsert implements store.Store. Each record is written independently so a
// single malformed listing cannot sink the batch.
func (s *Store) Upsert(ctx context.Context, listings []listing.Listing) (int, error) {
	written := 0
	for _, l := range listings {
		if l.JobID == "" {
			s.logger.Warn("listing skipped: empty job_id", zap.String("job_name", l.JobName))
			continue
		}
		_, err := s.db.Exec(ctx, upsertSQL,
			l.JobID, l.JobName, l.CustName, l.JobURL, l.JobAddr,
			l.SalaryDesc, l.JobDetail, l.AppearDate, l.JobCat, l.JobType,
			l.WorkExp, l.Edu, l.Skill, l.Benefit, l.RemoteWork,
		)
		if err != nil {
			s.logger.Warn("listing upsert failed",
				zap.String("job_id", l.JobID),
				zap.Error(err),
			)
			continue
		}
		written++
	}
	return written, nil
}

const selectColumns = `
	job_id, job_name, cust_name, job_url, job_addr_no_desc,
	salary_desc, job_detail, appear_date, job_cat, job_type,
	work_exp, edu, skill, benefit, remote_work, created_at, updated_at`

// Search implements store.Store.
func (s *Store) Search(ctx context.Context, f store.Filter) ([]listing.Listing, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // LIMIT ALL
	}
	query := `SELECT ` + selectColumns + `
		FROM jobs
		WHERE ($1 = '' OR job_name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR cust_name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT NULLIF($3, -1) OFFSET $4`
	rows, err := s.db.Query(ctx, query, f.Keyword, f.Company, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// Recent implements store.Store.
func (s *Store) Recent(ctx context.Context, days int) ([]listing.Listing, error) {
	query := `SELECT ` + selectColumns + `
		FROM jobs
		WHERE created_at >= NOW() - make_interval(days => $1)
		ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// PurgeOlderThan implements store.Store.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM jobs WHERE created_at < NOW() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func scanListings(rows pgx.Rows) ([]listing.Listing, error) {
	var out []listing.Listing
	for rows.Next() {
		var l listing.Listing
		if err := rows.Scan(
			&l.JobID, &l.JobName, &l.CustName, &l.JobURL, &l.JobAddr,
			&l.SalaryDesc, &l.JobDetail, &l.AppearDate, &l.JobCat, &l.JobType,
			&l.WorkExp, &l.Edu, &l.Skill, &l.Benefit, &l.RemoteWork,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return out, nil
}
