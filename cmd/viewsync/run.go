package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation",
	Long: `Check every materialized view over the window, rebuild drifted days and
send the report.

Examples:
  # Reconcile the last 30 days
  viewsync run

  # Show what would be rebuilt over the last week
  viewsync run --window 7 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		journal := openJournal(cfg)
		if journal != nil {
			defer journal.Close()
		}

		summary, err := newReconciler(cfg, s, journal, dryRun).Run(ctx)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}

		printSummary(cmd.OutOrStdout(), summary)
		if len(summary.Failures) > 0 {
			return fmt.Errorf("%d view(s) could not be backfilled", len(summary.Failures))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "Detect drift without repairing it")
	runCmd.Flags().Int("window", 30, "Number of days to check, ending yesterday")
}
