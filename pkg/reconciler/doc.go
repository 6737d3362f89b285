/*
Package reconciler runs reconciliation of materialized views against the
source event log.

A run scans every discovered view over a trailing window of days, compares
hourly row counts of the view with the counts the view's own predicate yields
on the source log, and rebuilds every drifted day from the source. The run
ends with a summary, a set of notifications and an optional journal entry.

# Architecture

A run has three phases. Nothing from the repair phase feeds back into the
scan of the same run.

	┌────────────────────────────────────────────────────────────┐
	│                     Reconciler.Run                         │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────┐
	│ Discover (registry)        │  ListTables failure: run fails
	│  views, skipped views      │  per-view failure: skipped
	└────────────┬───────────────┘
	             │
	             ▼
	┌────────────────────────────┐
	│ Scan                       │  for each view, for each day
	│  drift.Detect(view, day)   │  in the window, oldest first
	│  → accumulator per view    │
	└────────────┬───────────────┘
	             │
	             ▼
	┌────────────────────────────┐
	│ Repair                     │  one Backfill per drifted view
	│  backfill.Backfill(days)   │  with all of its days
	└────────────┬───────────────┘
	             │
	             ▼
	┌────────────────────────────┐
	│ Finish                     │  report text, notifications,
	│                            │  history journal, metrics
	└────────────────────────────┘

# Outcomes per (view, day)

	Detect result         Suppressed view      Other view
	──────────────────    ─────────────────    ─────────────────────
	no drift              nothing              nothing
	drift                 alert day counted    day queued for repair
	query error           day unchecked        day unchecked

Unchecked days are never treated as clean or drifted. They keep the run from
reporting "all views are up-to-date" and are listed in the report so the next
run, or an operator, can look at them.

# Suppressed Views

Views named in the suppressed list (stat_corp by default) are checked like
every other view but never rebuilt. Their drift is counted and sent as a
"Missing data" alert. Every configured suppressed view has an alert entry in
the summary, zero when it had no drift.

# Failure Handling

  - Discovery cannot list tables: Run returns the error, nothing is sent.
  - A check fails: the day is recorded as unchecked, the scan continues.
  - A backfill fails: a failure entry is recorded, the view is not retried
    until the next run. A failed insert leaves the deleted days empty; the
    next run sees them as drifted and rebuilds them.
  - Notification or journal failure: logged, the run still succeeds.
  - Context cancelled during the scan: Run returns the partial summary and
    the context error without repairing anything.

# Dry Run

With Config.DryRun set the repair phase is skipped. Views that would have
been rebuilt are listed in Summary.Pending and reported under their own
dry-run header, never under the backfill header.

# Periodic Mode

Start runs a reconciliation immediately and then on every tick of the given
interval. Runs are sequential; a run that outlasts the interval delays the
next one instead of overlapping it. Stop cancels the running cycle through
its context and waits for the loop to exit.

# Usage

	r := reconciler.NewReconciler(chStore, cfg.Registry(),
		reconciler.Config{
			WindowDays: 30,
			EndOffset:  1,
			Location:   cfg.Location(),
		},
		reconciler.WithNotifier(notifier),
		reconciler.WithJournal(journal),
	)

	summary, err := r.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Println(summary.Report)

# Metrics

	viewsync_runs_total{result}            success, partial, failed, aborted
	viewsync_run_duration_seconds          whole run
	viewsync_last_run_timestamp_seconds    end of the last finished run
	viewsync_views_discovered              views found by the last discovery
	viewsync_views_skipped                 views dropped with a diagnostic
	viewsync_drift_days_total{view}        drifted days seen by scans
	viewsync_alert_days{view}              drifted days of suppressed views
*/
package reconciler
