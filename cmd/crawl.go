package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/crawler"
	"github.com/jobwatch/jobwatch/internal/export"
	"github.com/jobwatch/jobwatch/internal/listing"
)

type crawlFlags struct {
	keyword    string
	area       string
	pages      int
	jobCat     string
	salaryMin  int
	salaryMax  int
	experience string
	remoteWork bool
	format     string
	output     string
	store      bool
}

// newCrawlCmd creates the one-shot crawl-and-export subcommand.
func newCrawlCmd() *cobra.Command {
	var flags crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetches listings for one query and writes them to a file",
		Long: `Runs a single search against the 104 API and exports the
normalized listings to CSV or JSON. With --store the listings are also
upserted into the configured database; use serve for continuous
ingestion.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.keyword, "keyword", "", "search keyword (required)")
	cmd.Flags().StringVar(&flags.area, "area", "", "area code filter")
	cmd.Flags().IntVar(&flags.pages, "pages", 1, "number of result pages to fetch")
	cmd.Flags().StringVar(&flags.jobCat, "jobcat", "", "job category code filter")
	cmd.Flags().IntVar(&flags.salaryMin, "salary-min", 0, "minimum monthly salary filter")
	cmd.Flags().IntVar(&flags.salaryMax, "salary-max", 0, "maximum monthly salary filter")
	cmd.Flags().StringVar(&flags.experience, "experience", "", "experience code filter")
	cmd.Flags().BoolVar(&flags.remoteWork, "remote-work", false, "remote positions only")
	cmd.Flags().StringVar(&flags.format, "format", "csv", "output format: csv or json")
	cmd.Flags().StringVar(&flags.output, "output", "", "output file (default timestamped name)")
	cmd.Flags().BoolVar(&flags.store, "store", false, "also upsert the listings into the configured database")
	_ = cmd.MarkFlagRequired("keyword")

	return cmd
}

func runCrawl(cmd *cobra.Command, flags crawlFlags) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	format, err := export.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	fetcher := newFetcher(cfg, logger)
	raw, err := fetcher.Fetch(cmd.Context(), crawler.Query{
		Keyword:    flags.keyword,
		Area:       flags.area,
		Pages:      flags.pages,
		JobCat:     flags.jobCat,
		SalaryMin:  flags.salaryMin,
		SalaryMax:  flags.salaryMax,
		Experience: flags.experience,
		RemoteWork: flags.remoteWork,
	})
	if err != nil {
		logger.Error("crawl aborted", zap.Error(err))
		return nil
	}

	listings := listing.NormalizeAll(raw)

	stored := 0
	if flags.store {
		st, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("open store failed", zap.Error(err))
			return nil
		}
		defer func() { _ = st.Close() }()

		if stored, err = st.Upsert(cmd.Context(), listings); err != nil {
			logger.Error("store write failed", zap.Error(err))
			return nil
		}
	}

	path := flags.output
	if path == "" {
		path = export.DefaultFilename(format, time.Now())
	}
	if err := export.WriteFile(path, format, listings); err != nil {
		logger.Error("export failed", zap.String("path", path), zap.Error(err))
		return nil
	}

	logger.Info("crawl complete",
		zap.String("keyword", flags.keyword),
		zap.Int("pages", flags.pages),
		zap.Int("listings", len(listings)),
		zap.Int("stored", stored),
		zap.String("output", path),
	)
	return nil
}
