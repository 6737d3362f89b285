package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/viewsync/pkg/api"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Reconcile periodically and expose status over HTTP",
	Long: `Run a reconciliation at start and then every --interval, serving
/metrics, /health, /ready, /live, /runs and /views on --addr.

Runs never overlap; a run that outlasts the interval delays the next one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		metrics.SetVersion(Version)
		metrics.SetRunInterval(cfg.Serve.Interval)

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

		collector := metrics.NewCollector(s, 30*time.Second)
		collector.Start()
		defer collector.Stop()

		var runs api.RunHistory
		if journal != nil {
			runs = journal
		}
		status := api.NewStatusServer(runs)
		errCh := make(chan error, 1)
		go func() {
			if err := status.Start(cfg.Serve.Addr); err != nil {
				errCh <- fmt.Errorf("status server error: %w", err)
			}
		}()

		recon := newReconciler(cfg, s, journal, false)
		recon.Start(ctx, cfg.Serve.Interval)
		printSuccess(cmd.OutOrStdout(), "Reconciling every %s, status on %s", cfg.Serve.Interval, cfg.Serve.Addr)

		var runErr error
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		case runErr = <-errCh:
		}

		recon.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := status.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}

		if runErr == nil {
			printSuccess(cmd.OutOrStdout(), "Shutdown complete")
		}
		return runErr
	},
}

func init() {
	serveCmd.Flags().Duration("interval", 24*time.Hour, "Time between reconciliation runs")
	serveCmd.Flags().String("addr", ":9090", "Address of the status server")
}
