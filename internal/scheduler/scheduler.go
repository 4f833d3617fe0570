// Package scheduler runs named tasks on cron cadences. The runner polls an
// injected clock on a coarse tick instead of arming one timer per task, so a
// suspended or slow host fires missed tasks on the next tick rather than
// drifting silently.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/clock"
	"github.com/jobwatch/jobwatch/internal/metrics"
)

// Task is one recurring unit of work.
type Task struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context) error
}

// Parse parses a standard five-field cron spec or a descriptor like @hourly.
func Parse(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return s, nil
}

type entry struct {
	task Task
	next time.Time
}

// Runner holds tasks in registration order; ties on a tick fire in that
// order.
type Runner struct {
	clock   clock.Clock
	logger  *zap.Logger
	period  time.Duration
	entries []*entry
	startup func(ctx context.Context) error
}

// New builds a Runner that ticks every period.
func New(clk clock.Clock, period time.Duration, logger *zap.Logger) *Runner {
	return &Runner{clock: clk, period: period, logger: logger}
}

// Add registers a task. Its first fire time is computed from the current
// clock reading.
func (r *Runner) Add(t Task) {
	r.entries = append(r.entries, &entry{
		task: t,
		next: t.Schedule.Next(r.clock.Now()),
	})
}

// SetStartup registers a function run once before the tick loop starts.
func (r *Runner) SetStartup(fn func(ctx context.Context) error) {
	r.startup = fn
}

// Tick fires every task whose next fire time is at or before now. A task
// failure is logged; the remaining due tasks still run.
func (r *Runner) Tick(ctx context.Context, now time.Time) {
	for _, e := range r.entries {
		if e.next.After(now) {
			continue
		}
		r.runTask(ctx, e.task)
		e.next = e.task.Schedule.Next(now)
	}
}

func (r *Runner) runTask(ctx context.Context, t Task) {
	r.logger.Info("task starting", zap.String("task", t.Name))
	start := time.Now()

	status := "ok"
	if err := t.Run(ctx); err != nil {
		status = "error"
		r.logger.Error("task failed", zap.String("task", t.Name), zap.Error(err))
	} else {
		r.logger.Info("task complete",
			zap.String("task", t.Name),
			zap.Duration("took", time.Since(start)),
		)
	}
	metrics.ObserveTaskRun(t.Name, status, time.Since(start))
}

// Run executes the startup pass, then ticks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.startup != nil {
		r.logger.Info("startup pass starting")
		if err := r.startup(ctx); err != nil {
			r.logger.Error("startup pass failed", zap.Error(err))
		}
	}

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx, r.clock.Now())
		}
	}
}
