package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/api"
	"github.com/jobwatch/jobwatch/internal/clock/system"
	"github.com/jobwatch/jobwatch/internal/config"
	"github.com/jobwatch/jobwatch/internal/crawler"
	"github.com/jobwatch/jobwatch/internal/ingest"
	"github.com/jobwatch/jobwatch/internal/metrics"
	"github.com/jobwatch/jobwatch/internal/scheduler"
	"github.com/jobwatch/jobwatch/internal/statlog"
)

// newServeCmd creates the long-running service subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the scheduled ingestion service with the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("store close failed", zap.Error(cerr))
		}
	}()

	stats, err := statlog.New(cfg.Logs.Dir, logger)
	if err != nil {
		return err
	}

	clk := system.New()
	pipeline := ingest.New(newFetcher(cfg, logger), st, stats, clk, logger)

	runner := scheduler.New(clk, cfg.TickPeriod(), logger)
	if err := registerTasks(runner, pipeline, cfg); err != nil {
		return err
	}
	runner.SetStartup(fullSweepRun(pipeline, cfg))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(st, pipeline, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(serveErr))
			stop()
		}
	}()

	go func() {
		if runErr := runner.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("scheduler stopped", zap.Error(runErr))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	return nil
}

func registerTasks(runner *scheduler.Runner, pipeline *ingest.Pipeline, cfg config.Config) error {
	specs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"full-sweep", cfg.Schedule.FullSweep, fullSweepRun(pipeline, cfg)},
		{"region-sweep", cfg.Schedule.RegionSweep, func(ctx context.Context) error {
			_, err := pipeline.Sweep(ctx, regionSweepQueries(cfg),
				time.Duration(cfg.Ingest.RegionDelaySeconds)*time.Second)
			return err
		}},
		{"purge", cfg.Schedule.Purge, func(ctx context.Context) error {
			_, err := pipeline.Purge(ctx, cfg.Ingest.RetentionDays)
			return err
		}},
		{"report", cfg.Schedule.Report, func(ctx context.Context) error {
			_, err := pipeline.Report(ctx)
			return err
		}},
		{"refresh", cfg.Schedule.Refresh, func(ctx context.Context) error {
			_, err := pipeline.Pass(ctx, refreshQuery(cfg))
			return err
		}},
	}

	for _, s := range specs {
		sched, err := scheduler.Parse(s.spec)
		if err != nil {
			return fmt.Errorf("task %s: %w", s.name, err)
		}
		runner.Add(scheduler.Task{Name: s.name, Schedule: sched, Run: s.run})
	}
	return nil
}

// fullSweepRun sweeps every configured keyword. It backs both the daily
// full-sweep task and the startup pass, so a fresh deployment is populated
// immediately rather than waiting for the first scheduled sweep.
func fullSweepRun(pipeline *ingest.Pipeline, cfg config.Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := pipeline.Sweep(ctx, fullSweepQueries(cfg),
			time.Duration(cfg.Ingest.SweepDelaySeconds)*time.Second)
		return err
	}
}

// fullSweepQueries covers every configured keyword in the default area.
func fullSweepQueries(cfg config.Config) []crawler.Query {
	queries := make([]crawler.Query, 0, len(cfg.Ingest.Keywords))
	for _, kw := range cfg.Ingest.Keywords {
		queries = append(queries, crawler.Query{
			Keyword: kw,
			Area:    cfg.Ingest.DefaultArea,
			Pages:   cfg.Ingest.SweepPages,
		})
	}
	return queries
}

// regionSweepQueries crosses the hot keywords with every configured area.
func regionSweepQueries(cfg config.Config) []crawler.Query {
	queries := make([]crawler.Query, 0, len(cfg.Ingest.Areas)*len(cfg.Ingest.HotKeywords))
	for _, area := range cfg.Ingest.Areas {
		for _, kw := range cfg.Ingest.HotKeywords {
			queries = append(queries, crawler.Query{
				Keyword: kw,
				Area:    area,
				Pages:   cfg.Ingest.RegionPages,
			})
		}
	}
	return queries
}

func refreshQuery(cfg config.Config) crawler.Query {
	return crawler.Query{
		Keyword: cfg.Ingest.RefreshKeyword,
		Area:    cfg.Ingest.DefaultArea,
		Pages:   1,
	}
}
