// Package crawler fetches paginated job-listing results from the 104
// search endpoint.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/metrics"
)

// Config controls fetch behavior.
type Config struct {
	Endpoint  string
	UserAgent string
	Referer   string
	Timeout   time.Duration
	DelayMin  time.Duration
	DelayMax  time.Duration
}

// Fetcher pulls search result pages for one Query using a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger

	// sleep is swapped out in tests so crawls don't wait on wall time.
	sleep func(context.Context, time.Duration)
}

// envelope is the upstream response wrapper; the listings live at data.list.
type envelope struct {
	Data struct {
		List []listing.Raw `json:"list"`
	} `json:"data"`
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
		sleep:         sleepContext,
	}
}

// Fetch requests pages 1..q.Pages sequentially and returns the raw listings
// concatenated in page order. A failed or unparsable page is logged and
// skipped; an empty page does not stop the crawl — exactly q.Pages requests
// are attempted. The only error returned is context cancellation.
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]listing.Raw, error) {
	var all []listing.Raw
	for page := 1; page <= q.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return all, fmt.Errorf("fetch canceled: %w", err)
		}

		raws, err := f.fetchPage(q, page)
		if err != nil {
			outcome := "transient"
			if errors.Is(err, ErrParse) {
				outcome = "parse"
			}
			metrics.ObserveFetchPage(outcome)
			f.logger.Warn("page skipped",
				zap.String("keyword", q.Keyword),
				zap.String("area", q.Area),
				zap.Int("page", page),
				zap.Error(err),
			)
		} else {
			metrics.ObserveFetchPage("ok")
			f.logger.Debug("page fetched",
				zap.String("keyword", q.Keyword),
				zap.Int("page", page),
				zap.Int("listings", len(raws)),
			)
			all = append(all, raws...)
		}

		if page < q.Pages {
			d := f.delay()
			metrics.ObserveFetchDelay(d)
			f.sleep(ctx, d)
		}
	}
	return all, nil
}

func (f *Fetcher) fetchPage(q Query, page int) ([]listing.Raw, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json, text/plain, */*")
		if f.cfg.Referer != "" {
			r.Headers.Set("Referer", f.cfg.Referer)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	pageURL := f.cfg.Endpoint + "?" + q.params(page).Encode()
	if err := collector.Visit(pageURL); err != nil {
		return nil, &PageError{Page: page, Err: fmt.Errorf("%w: %v", ErrTransient, err)}
	}
	if fetchErr != nil {
		return nil, &PageError{Page: page, Err: fmt.Errorf("%w: %v", ErrTransient, fetchErr)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &PageError{Page: page, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}
	return env.Data.List, nil
}

// delay draws a uniform random duration from [DelayMin, DelayMax]. The
// inter-page delay is a hard requirement of the upstream, not tuning.
func (f *Fetcher) delay() time.Duration {
	span := f.cfg.DelayMax - f.cfg.DelayMin
	if span <= 0 {
		return f.cfg.DelayMin
	}
	return f.cfg.DelayMin + time.Duration(rand.Int64N(int64(span)+1))
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
