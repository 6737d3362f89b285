package main

import (
	"fmt"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check VIEW DAY",
	Short: "Compare one view with the source log for one day",
	Long: `Print the hourly row counts of a view and of its source query for one
day, marking the hours that disagree. Nothing is repaired.

Example:
  viewsync check stat_clicks 2024-01-08`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := types.ParseDay(args[1])
		if err != nil {
			return err
		}

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

		rep, err := newReconciler(cfg, s, nil, true).Check(ctx, args[0], day)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		drifted := make(map[int]bool, len(rep.Hours))
		for _, h := range rep.Hours {
			drifted[h] = true
		}

		tw := newTable(out, "HOUR", "SOURCE", "VIEW", "")
		for h := 0; h < 24; h++ {
			src, inSrc := rep.Source[h]
			dst, inDst := rep.Target[h]
			if !inSrc && !inDst {
				continue
			}
			mark := ""
			if drifted[h] {
				mark = "drift"
			}
			fmt.Fprintf(tw, "%02d\t%d\t%d\t%s\n", h, src, dst, mark)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if rep.Drifted() {
			printWarning(out, "%s drifted on %s in %d hour(s): %d source rows, %d view rows",
				rep.View, rep.Day, len(rep.Hours), rep.Source.Total(), rep.Target.Total())
		} else {
			printSuccess(out, "%s is in sync on %s", rep.View, rep.Day)
		}
		return nil
	},
}
