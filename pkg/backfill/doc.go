/*
Package backfill repairs drifted views by replacing whole days.

A backfill runs in two phases against the analytical store:

 1. Delete: remove every view row whose day is in the requested set.
 2. Re-insert: INSERT INTO view SELECT projection FROM source WHERE predicate
    AND day IN (days).

The phases are not atomic. If the insert fails after the delete succeeded the
view has no rows for those days; the next scheduled run sees the gap as drift
and repairs it. Nothing is retried inside a run.

Repeating a backfill with unchanged source data leaves the view as it was:
the same rows are deleted and the same rows come back.

The executor is called once per view with every drifted day of the scan
window, so each view costs one delete and one insert regardless of how many
days drifted. Views flagged as suppressed are rejected with ErrSuppressed
before the store is touched.
*/
package backfill
