// Package statlog appends ingestion statistics as JSON lines. The files are
// append-only so several passes in one process (or a crash mid-run) never
// clobber earlier records.
package statlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	ingestFile = "scrape_stats.jsonl"
	reportFile = "daily_reports.jsonl"
)

// IngestStat is one line of the per-pass statistics file.
type IngestStat struct {
	Timestamp     time.Time `json:"timestamp"`
	Keyword       string    `json:"keyword"`
	ScrapedCount  int       `json:"scraped_count"`
	InsertedCount int       `json:"inserted_count"`
}

// DailyReport is one line of the daily summary file.
type DailyReport struct {
	Date         string    `json:"date"`
	TotalJobs    int64     `json:"total_jobs"`
	NewJobsToday int       `json:"new_jobs_today"`
	Timestamp    time.Time `json:"timestamp"`
}

// Writer appends records under a single directory.
type Writer struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

// New creates the log directory if needed and returns a writer for it.
func New(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stats dir %q: %w", dir, err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// AppendIngest records the outcome of one ingestion pass.
func (w *Writer) AppendIngest(stat IngestStat) error {
	return w.appendLine(ingestFile, stat)
}

// AppendReport records one daily summary.
func (w *Writer) AppendReport(report DailyReport) error {
	return w.appendLine(reportFile, report)
}

func (w *Writer) appendLine(name string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stats record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open stats file %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append stats record: %w", err)
	}
	return nil
}
