package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/viewsync/pkg/config"
	"github.com/cuemby/viewsync/pkg/history"
	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/notify"
	"github.com/cuemby/viewsync/pkg/reconciler"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "viewsync",
	Short: "viewsync - keep ClickHouse materialized views in line with their source",
	Long: `viewsync compares hourly row counts of every materialized view with
the rows its own query selects from the source event log, and rebuilds the
days where they disagree.

Configuration is read from viewsync.yaml (or --config), VIEWSYNC_*
environment variables and flags, in increasing precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"viewsync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Config file (default ./viewsync.yaml or /etc/viewsync/viewsync.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-json":  "log.json",
	"window":    "window.days",
	"interval":  "serve.interval",
	"addr":      "serve.addr",
}

// loadConfig reads configuration with the command's flags bound on top and
// initializes logging from it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key := flagKeys[f.Name]; key != "" && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}

	log.Init(cfg.Logging())
	return cfg, nil
}

// openStore connects to ClickHouse
func openStore(ctx context.Context, cfg *config.Config) (*store.ClickHouse, error) {
	s, err := store.NewClickHouse(ctx, cfg.ClickHouse())
	if err != nil {
		return nil, err
	}
	metrics.ReportStore(nil)
	return s, nil
}

// openJournal opens the run history, or returns nil when it is disabled.
// A journal that cannot be opened is logged and skipped.
func openJournal(cfg *config.Config) *history.Journal {
	if cfg.History.Path == "" {
		return nil
	}
	j, err := history.Open(cfg.History.Path, cfg.History.Keep)
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", cfg.History.Path).Msg("Run history disabled")
		return nil
	}
	return j
}

// newNotifier sends through Telegram when a token is configured and to the
// log otherwise
func newNotifier(cfg *config.Config) *notify.Notifier {
	var sender notify.Sender = notify.NewLogSender()
	channels := cfg.Channels()
	if cfg.Notify.Telegram.Token != "" {
		sender = notify.NewTelegram(cfg.Telegram())
	} else if channels.Report == "" {
		channels = notify.Channels{Report: "log", Status: "log"}
	}
	return notify.NewNotifier(sender, channels)
}

// newReconciler wires the reconciler with its optional collaborators
func newReconciler(cfg *config.Config, s store.Store, journal *history.Journal, dryRun bool) *reconciler.Reconciler {
	opts := []reconciler.Option{reconciler.WithNotifier(newNotifier(cfg))}
	if journal != nil {
		opts = append(opts, reconciler.WithJournal(journal))
	}

	return reconciler.NewReconciler(s, cfg.Registry(), reconciler.Config{
		WindowDays: cfg.Window.Days,
		EndOffset:  cfg.Window.EndOffset,
		Location:   cfg.Location(),
		DryRun:     dryRun,
	}, opts...)
}
