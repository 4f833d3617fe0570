// Package sqlite implements the listing store on an embedded sqlite engine.
// The busy-timeout pragma makes lock contention from a second writer process
// (scheduler plus a manual crawl) wait instead of fail.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/store"
)

// timeLayout is the fixed text form timestamps are stored in. Comparisons in
// SQL are lexicographic, which is order-preserving for this layout.
const timeLayout = "2006-01-02 15:04:05"

// Store implements store.Store on sqlite via sqlx.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
	nowFn  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database file and applies the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	s := NewWithDB(db, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT UNIQUE,
	job_name TEXT NOT NULL DEFAULT '',
	cust_name TEXT NOT NULL DEFAULT '',
	job_url TEXT NOT NULL DEFAULT '',
	job_addr_no_desc TEXT NOT NULL DEFAULT '',
	salary_desc TEXT NOT NULL DEFAULT '',
	job_detail TEXT NOT NULL DEFAULT '',
	appear_date TEXT NOT NULL DEFAULT '',
	job_cat TEXT NOT NULL DEFAULT '',
	job_type TEXT NOT NULL DEFAULT '',
	work_exp TEXT NOT NULL DEFAULT '',
	edu TEXT NOT NULL DEFAULT '',
	skill TEXT NOT NULL DEFAULT '',
	benefit TEXT NOT NULL DEFAULT '',
	remote_work INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_job_id ON jobs(job_id);
CREATE INDEX IF NOT EXISTS idx_jobs_job_name ON jobs(job_name);
CREATE INDEX IF NOT EXISTS idx_jobs_cust_name ON jobs(cust_name);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// EnsureSchema creates the jobs table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO jobs (
	job_id, job_name, cust_name, job_url, job_addr_no_desc,
	salary_desc, job_detail, appear_date, job_cat, job_type,
	work_exp, edu, skill, benefit, remote_work, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
	job_name = excluded.job_name,
	cust_name = excluded.cust_name,
	job_url = excluded.job_url,
	job_addr_no_desc = excluded.job_addr_no_desc,
	salary_desc = excluded.salary_desc,
	job_detail = excluded.job_detail,
	appear_date = excluded.appear_date,
	job_cat = excluded.job_cat,
	job_type = excluded.job_type,
	work_exp = excluded.work_exp,
	edu = excluded.edu,
	skill = excluded.skill,
	benefit = excluded.benefit,
	remote_work = excluded.remote_work,
	updated_at = excluded.updated_at`

// Upsert implements store.Store.
func (s *Store) Upsert(ctx context.Context, listings []listing.Listing) (int, error) {
	now := s.nowFn().Format(timeLayout)
	written := 0
	for _, l := range listings {
		if l.JobID == "" {
			s.logger.Warn("listing skipped: empty job_id", zap.String("job_name", l.JobName))
			continue
		}
		_, err := s.db.ExecContext(ctx, upsertSQL,
			l.JobID, l.JobName, l.CustName, l.JobURL, l.JobAddr,
			l.SalaryDesc, l.JobDetail, l.AppearDate, l.JobCat, l.JobType,
			l.WorkExp, l.Edu, l.Skill, l.Benefit, l.RemoteWork, now, now,
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

// jobRow carries the raw column values; timestamps stay text until parsed.
type jobRow struct {
	JobID      string `db:"job_id"`
	JobName    string `db:"job_name"`
	CustName   string `db:"cust_name"`
	JobURL     string `db:"job_url"`
	JobAddr    string `db:"job_addr_no_desc"`
	SalaryDesc string `db:"salary_desc"`
	JobDetail  string `db:"job_detail"`
	AppearDate string `db:"appear_date"`
	JobCat     string `db:"job_cat"`
	JobType    string `db:"job_type"`
	WorkExp    string `db:"work_exp"`
	Edu        string `db:"edu"`
	Skill      string `db:"skill"`
	Benefit    string `db:"benefit"`
	RemoteWork bool   `db:"remote_work"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (r jobRow) toListing() listing.Listing {
	created, _ := time.ParseInLocation(timeLayout, r.CreatedAt, time.UTC)
	updated, _ := time.ParseInLocation(timeLayout, r.UpdatedAt, time.UTC)
	return listing.Listing{
		JobID:      r.JobID,
		JobName:    r.JobName,
		CustName:   r.CustName,
		JobURL:     r.JobURL,
		JobAddr:    r.JobAddr,
		SalaryDesc: r.SalaryDesc,
		JobDetail:  r.JobDetail,
		AppearDate: r.AppearDate,
		JobCat:     r.JobCat,
		JobType:    r.JobType,
		WorkExp:    r.WorkExp,
		Edu:        r.Edu,
		Skill:      r.Skill,
		Benefit:    r.Benefit,
		RemoteWork: r.RemoteWork,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
}

const selectColumns = `
	job_id, job_name, cust_name, job_url, job_addr_no_desc,
	salary_desc, job_detail, appear_date, job_cat, job_type,
	work_exp, edu, skill, benefit, remote_work, created_at, updated_at`

// Search implements store.Store.
func (s *Store) Search(ctx context.Context, f store.Filter) ([]listing.Listing, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // sqlite: negative LIMIT means unbounded
	}
	query := `SELECT ` + selectColumns + `
		FROM jobs
		WHERE (? = '' OR LOWER(job_name) LIKE '%' || LOWER(?) || '%')
		  AND (? = '' OR LOWER(cust_name) LIKE '%' || LOWER(?) || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows, query,
		f.Keyword, f.Keyword, f.Company, f.Company, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	return toListings(rows), nil
}

// Recent implements store.Store.
func (s *Store) Recent(ctx context.Context, days int) ([]listing.Listing, error) {
	cutoff := s.nowFn().AddDate(0, 0, -days).Format(timeLayout)
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+selectColumns+`
		 FROM jobs
		 WHERE created_at >= ?
		 ORDER BY created_at DESC, id DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	return toListings(rows), nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM jobs`); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// PurgeOlderThan implements store.Store.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := s.nowFn().AddDate(0, 0, -days).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return deleted, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func toListings(rows []jobRow) []listing.Listing {
	out := make([]listing.Listing, len(rows))
	for i, r := range rows {
		out[i] = r.toListing()
	}
	return out
}
