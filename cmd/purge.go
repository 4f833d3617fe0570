package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newPurgeCmd creates the retention cleanup subcommand.
func newPurgeCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Deletes listings older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if days <= 0 {
				days = cfg.Ingest.RetentionDays
			}

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			deleted, err := st.PurgeOlderThan(cmd.Context(), days)
			if err != nil {
				logger.Error("purge failed", zap.Error(err))
				return nil
			}
			logger.Info("purge complete",
				zap.Int("days", days),
				zap.Int64("deleted", deleted),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default from config)")
	return cmd
}
