// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchPagesTotal            *prometheus.CounterVec
	listingsScrapedTotal       prometheus.Counter
	listingsWrittenTotal       prometheus.Counter
	jobsPurgedTotal            prometheus.Counter
	fetchDelaySeconds          prometheus.Histogram
	taskRunsTotal              *prometheus.CounterVec
	taskDurationSeconds        *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobwatch_fetch_pages_total",
				Help: "Total number of result pages requested, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		listingsScrapedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobwatch_listings_scraped_total",
				Help: "Total number of raw listings fetched from the upstream board.",
			},
		)

		listingsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobwatch_listings_written_total",
				Help: "Total number of listings written to the store.",
			},
		)

		jobsPurgedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobwatch_jobs_purged_total",
				Help: "Total number of listings removed by retention cleanup.",
			},
		)

		fetchDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobwatch_fetch_delay_seconds",
				Help:    "Histogram of randomized inter-page delays.",
				Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 5},
			},
		)

		taskRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobwatch_task_runs_total",
				Help: "Total number of scheduled task runs, labeled by task and status.",
			},
			[]string{"task", "status"},
		)

		taskDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobwatch_task_duration_seconds",
				Help:    "Histogram of scheduled task run durations.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"task"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchPage counts one page attempt. The one-shot crawl command runs
// without Init, so collectors may be nil here.
func ObserveFetchPage(outcome string) {
	if fetchPagesTotal == nil {
		return
	}
	fetchPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchDelay records one randomized inter-page wait.
func ObserveFetchDelay(d time.Duration) {
	if fetchDelaySeconds == nil {
		return
	}
	fetchDelaySeconds.Observe(d.Seconds())
}

// ObserveIngest records the raw and written listing counts of one pass.
func ObserveIngest(scraped, written int) {
	if listingsScrapedTotal == nil {
		return
	}
	listingsScrapedTotal.Add(float64(scraped))
	listingsWrittenTotal.Add(float64(written))
}

// ObservePurge records listings removed by retention cleanup.
func ObservePurge(deleted int64) {
	if jobsPurgedTotal == nil {
		return
	}
	jobsPurgedTotal.Add(float64(deleted))
}

// ObserveTaskRun records the outcome and duration of a scheduled task run.
func ObserveTaskRun(task, status string, duration time.Duration) {
	if taskRunsTotal == nil {
		return
	}
	taskRunsTotal.WithLabelValues(task, status).Inc()
	taskDurationSeconds.WithLabelValues(task).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
