/*
Package metrics provides Prometheus metrics and health endpoints for viewsync.

All collectors are package-level variables registered with the default
Prometheus registry at init time, in the same way for every component: the
reconciler, drift detector and backfill executor update them directly, and the
serve command exposes them on /metrics.

# Metric Catalogue

Run metrics:
  - viewsync_runs_total{result}: runs by result (success, partial, failed, aborted)
  - viewsync_run_duration_seconds: run duration histogram
  - viewsync_last_run_timestamp_seconds: finish time of the last run
  - viewsync_views_discovered / viewsync_views_skipped: discovery outcome

Drift metrics:
  - viewsync_check_duration_seconds: one (view, day) check
  - viewsync_drift_days_total{view}: drifted days found
  - viewsync_query_errors_total{view}: checks that could not complete
  - viewsync_alert_days{view}: drifted days of backfill-suppressed views

Backfill metrics:
  - viewsync_backfills_total{view,result}: backfills by result
  - viewsync_backfill_days_total{view}: days re-inserted
  - viewsync_backfill_phase_duration_seconds{phase}: delete and insert phases

Delivery and store:
  - viewsync_notifications_total{result}: sent, failed
  - viewsync_store_up: result of the last store ping

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RunDuration)

	phase := metrics.NewTimer()
	err := store.DeleteDays(ctx, view, days)
	phase.ObserveDurationVec(metrics.BackfillDuration, "delete")

# Health

Health answers two questions about a long-running viewsync: can it reach
ClickHouse, and are runs still finishing. The Collector pings the store on an
interval and calls ReportStore; the reconciler calls RecordRun at the end of
every run. SetRunInterval arms the overdue check, which trips once two
intervals pass without a finished run.

	/health  503 while the store is unreachable, "degraded" (200) after a
	         failed run or while runs are overdue
	/ready   200 once the store answered its last probe and runs are on time
	/live    200 while the process runs
*/
package metrics
