/*
Package log provides structured logging for viewsync using zerolog.

The package keeps a single global zerolog.Logger, configured once at process
start via Init, and hands out child loggers that carry the context of the
reconciliation: the component, the run, the view and the calendar day being
checked. Output of one run can therefore be filtered by run_id, and the
history of one view by view.

# Configuration

	log.Init(log.Config{Level: "info", JSONOutput: true})

Logs go to stderr unless Output is set, so that reports printed by the CLI
on stdout can be piped. Console output (JSONOutput false) uses
zerolog.ConsoleWriter with RFC3339 timestamps.

# Scoped Loggers

	runLog := log.ForRun("reconciler", summary.RunID)
	runLog.Info().Msg("Reconciliation started")

	dayLog := log.ForDay(runLog, view.Name, day)
	dayLog.Warn().Err(err).Msg("Day left unchecked")

	viewLog := log.ForView(log.WithComponent("backfill"), view.Name)
	viewLog.Info().Msg("Backfill completed")

# Levels

Debug is used for per-day check results, Info for run and backfill
milestones, Warn for skipped views, unchecked days and undelivered
notifications, Error for failed backfills.
*/
package log
