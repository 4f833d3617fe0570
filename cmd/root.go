// Package cmd defines and implements the CLI commands for the jobwatch
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/config"
	"github.com/jobwatch/jobwatch/internal/crawler"
	"github.com/jobwatch/jobwatch/internal/logging"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/store/postgres"
	"github.com/jobwatch/jobwatch/internal/store/sqlite"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobwatch",
		Short: "Collects and serves 104.com.tw job listings.",
		Long: `jobwatch pulls job listings from the 104.com.tw search API on a
schedule, normalizes them into a relational store, and serves the result
over HTTP. One-shot exports for offline analysis are available via the
crawl command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPurgeCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

// Execute is the main entry point. Failures are reported on stderr but the
// process still exits zero; unattended runs watch the stat logs instead of
// the exit status.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jobwatch:", err)
	}
}

// setup loads configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore connects the backend selected in config.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.DB.Backend {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DB.DSN, logger)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	default:
		return sqlite.Open(ctx, cfg.DB.Path, logger)
	}
}

// newFetcher builds the upstream fetcher from config.
func newFetcher(cfg config.Config, logger *zap.Logger) *crawler.Fetcher {
	return crawler.New(crawler.Config{
		Endpoint:  cfg.Upstream.Endpoint,
		UserAgent: cfg.Upstream.UserAgent,
		Referer:   cfg.Upstream.Referer,
		Timeout:   cfg.UpstreamTimeout(),
		DelayMin:  time.Duration(cfg.Upstream.DelayMinMs) * time.Millisecond,
		DelayMax:  time.Duration(cfg.Upstream.DelayMaxMs) * time.Millisecond,
	}, logger)
}
