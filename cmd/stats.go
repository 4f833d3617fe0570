package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newStatsCmd creates the store summary subcommand.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Prints a summary of the stored listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			total, err := st.Count(cmd.Context())
			if err != nil {
				logger.Error("count failed", zap.Error(err))
				return nil
			}
			fresh, err := st.Recent(cmd.Context(), 1)
			if err != nil {
				logger.Error("recent lookup failed", zap.Error(err))
				return nil
			}

			out, err := json.MarshalIndent(map[string]any{
				"total_jobs":     total,
				"new_jobs_today": len(fresh),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
