package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
)

func printSuccess(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

// printSummary writes the human-readable outcome of a run
func printSummary(w io.Writer, s *types.ReconciliationSummary) {
	fmt.Fprintf(w, "Run %s  window %s .. %s  views %d\n",
		s.RunID, s.Window.First(), s.Window.Last(), s.ViewsSeen)

	if s.Report != "" {
		fmt.Fprintln(w, s.Report)
	}
	for _, a := range s.Alerts {
		if a.Days > 0 {
			printWarning(w, "%s drifted on %d day(s), backfill suppressed", a.View, a.Days)
		}
	}
	for _, sk := range s.Skipped {
		printWarning(w, "%s skipped: %s", sk.View, sk.Reason)
	}
	if s.Clean() {
		printSuccess(w, "All views are up-to-date")
	}
}
