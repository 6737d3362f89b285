package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cuemby/viewsync/pkg/history"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "List recorded reconciliation runs",
	Long: `List recorded runs, newest first. With a run id, print that run's
summary. With --views, print the last repair recorded for every view.

Examples:
  viewsync history --limit 5
  viewsync history 3f9c2a1e-0c4d-4b8e-9a51-6f1d2b7c8e90
  viewsync history --views -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")
		views, _ := cmd.Flags().GetBool("views")
		if views && len(args) > 0 {
			return fmt.Errorf("--views does not take a run id")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.History.Path == "" {
			return fmt.Errorf("run history is disabled (history.path is empty)")
		}

		j, err := history.Open(cfg.History.Path, 0)
		if err != nil {
			return err
		}
		defer j.Close()

		out := cmd.OutOrStdout()
		switch {
		case len(args) == 1:
			run, err := j.Get(args[0])
			if err != nil {
				return err
			}
			if output == "yaml" {
				return writeYAML(out, run)
			}
			printSummary(out, run)
			return nil

		case views:
			records, err := j.Views()
			if err != nil {
				return err
			}
			if output == "yaml" {
				return writeYAML(out, records)
			}
			return printViewRecords(out, records)
		}

		runs, err := j.List(limit)
		if err != nil {
			return err
		}
		if output == "yaml" {
			return writeYAML(out, runs)
		}

		tw := newTable(out, "RUN", "STARTED", "DURATION", "DRY RUN", "REPAIRED", "FAILED", "UNCHECKED", "ALERT DAYS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\t%d\t%d\n",
				r.RunID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.DryRun,
				len(r.Entries),
				len(r.Failures),
				len(r.Unchecked),
				r.AlertDays(),
			)
		}
		return tw.Flush()
	},
}

// printViewRecords renders the last repair of each view as a table
func printViewRecords(w io.Writer, records []history.ViewRecord) error {
	tw := newTable(w, "VIEW", "REPAIRED AT", "RUN", "DAYS")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.View,
			rec.RepairedAt.Format("2006-01-02 15:04:05"),
			rec.RunID,
			joinDays(rec.Days),
		)
	}
	return tw.Flush()
}

func joinDays(days []types.Day) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}

func init() {
	historyCmd.Flags().Int("limit", 10, "Number of runs to show (0 for all)")
	historyCmd.Flags().Bool("views", false, "Show the last repair recorded for every view")
	historyCmd.Flags().StringP("output", "o", "table", "Output format (table, yaml)")
}
