// Package ingest ties the fetcher, normalizer and store into ingestion
// passes, the unit of work the scheduler and the API trigger.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/clock"
	"github.com/jobwatch/jobwatch/internal/crawler"
	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/metrics"
	"github.com/jobwatch/jobwatch/internal/statlog"
	"github.com/jobwatch/jobwatch/internal/store"
)

// Fetcher retrieves raw listings for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q crawler.Query) ([]listing.Raw, error)
}

// Stats summarizes one ingestion pass.
type Stats struct {
	Scraped int
	Written int
}

// SweepStats summarizes a multi-query sweep.
type SweepStats struct {
	Queries int
	Failed  int
	Scraped int
	Written int
}

// Pipeline runs ingestion passes against a single store.
type Pipeline struct {
	fetcher Fetcher
	store   store.Store
	stats   *statlog.Writer
	logger  *zap.Logger
	clock   clock.Clock

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds a Pipeline. stats may be nil when no stat log is wanted, as in
// the one-shot crawl command.
func New(fetcher Fetcher, st store.Store, stats *statlog.Writer, clk clock.Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   st,
		stats:   stats,
		logger:  logger,
		clock:   clk,
		sleep:   sleepCtx,
	}
}

// Pass fetches one query, normalizes the result and writes it to the store.
// A stat-log write failure is logged but does not fail the pass.
func (p *Pipeline) Pass(ctx context.Context, q crawler.Query) (Stats, error) {
	raw, err := p.fetcher.Fetch(ctx, q)
	if err != nil {
		return Stats{}, err
	}

	listings := listing.NormalizeAll(raw)
	written, err := p.store.Upsert(ctx, listings)
	if err != nil {
		return Stats{Scraped: len(raw)}, err
	}

	stats := Stats{Scraped: len(raw), Written: written}
	p.logger.Info("ingestion pass complete",
		zap.String("keyword", q.Keyword),
		zap.String("area", q.Area),
		zap.Int("scraped", stats.Scraped),
		zap.Int("written", stats.Written),
	)
	metrics.ObserveIngest(stats.Scraped, stats.Written)

	if p.stats != nil {
		err := p.stats.AppendIngest(statlog.IngestStat{
			Timestamp:     p.clock.Now(),
			Keyword:       q.Keyword,
			ScrapedCount:  stats.Scraped,
			InsertedCount: stats.Written,
		})
		if err != nil {
			p.logger.Warn("stat log append failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Sweep runs the queries in order with a fixed delay between them. A failed
// query is logged and skipped; the sweep continues with the next one.
func (p *Pipeline) Sweep(ctx context.Context, queries []crawler.Query, delay time.Duration) (SweepStats, error) {
	var sweep SweepStats
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}
		if i > 0 && delay > 0 {
			p.sleep(ctx, delay)
		}

		sweep.Queries++
		stats, err := p.Pass(ctx, q)
		if err != nil {
			sweep.Failed++
			p.logger.Warn("sweep query failed",
				zap.String("keyword", q.Keyword),
				zap.String("area", q.Area),
				zap.Error(err),
			)
			continue
		}
		sweep.Scraped += stats.Scraped
		sweep.Written += stats.Written
	}
	return sweep, nil
}

// Report summarizes the store: total rows plus rows created in the last day.
func (p *Pipeline) Report(ctx context.Context) (statlog.DailyReport, error) {
	total, err := p.store.Count(ctx)
	if err != nil {
		return statlog.DailyReport{}, err
	}
	fresh, err := p.store.Recent(ctx, 1)
	if err != nil {
		return statlog.DailyReport{}, err
	}

	now := p.clock.Now()
	report := statlog.DailyReport{
		Date:         now.Format("2006-01-02"),
		TotalJobs:    total,
		NewJobsToday: len(fresh),
		Timestamp:    now,
	}
	p.logger.Info("daily report",
		zap.String("date", report.Date),
		zap.Int64("total_jobs", report.TotalJobs),
		zap.Int("new_jobs_today", report.NewJobsToday),
	)
	if p.stats != nil {
		if err := p.stats.AppendReport(report); err != nil {
			p.logger.Warn("report append failed", zap.Error(err))
		}
	}
	return report, nil
}

// Purge removes listings older than the retention window.
func (p *Pipeline) Purge(ctx context.Context, days int) (int64, error) {
	deleted, err := p.store.PurgeOlderThan(ctx, days)
	if err != nil {
		return 0, err
	}
	p.logger.Info("retention cleanup complete",
		zap.Int("days", days),
		zap.Int64("deleted", deleted),
	)
	metrics.ObservePurge(deleted)
	return deleted, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
