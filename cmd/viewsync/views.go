package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List the views that would be reconciled",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != "table" && output != "yaml" {
			return fmt.Errorf("output must be 'table' or 'yaml'")
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

		views, skipped, err := newReconciler(cfg, s, nil, true).Views(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "yaml" {
			return writeYAML(out, views)
		}

		tw := newTable(out, "VIEW", "SUPPRESSED", "COLUMNS", "PREDICATE")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%t\t%d\t%s\n", v.Name, v.Suppressed, len(v.Projection), oneLine(v.Predicate))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, derr := range skipped {
			printWarning(out, "%s", derr.Error())
		}
		return nil
	},
}

func init() {
	viewsCmd.Flags().StringP("output", "o", "table", "Output format (table, yaml)")
}

// oneLine collapses whitespace so multi-line predicates fit a table row
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
