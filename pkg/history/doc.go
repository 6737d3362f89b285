/*
Package history keeps a local journal of reconciliation runs in BoltDB.

Each run summary is stored as JSON in the "runs" bucket under a key built
from its start time and run id, so a cursor walks runs in time order. The
"views" bucket holds the last repair recorded for every view, which answers
"when was this view last backfilled" without scanning all runs.

# Retention

Open takes a retention count. After every Record the oldest runs beyond that
count are deleted in the same transaction. Per-view records are never pruned.

# Usage

	journal, err := history.Open("/var/lib/viewsync/history.db", 100)
	if err != nil {
		return err
	}
	defer journal.Close()

	if err := journal.Record(summary); err != nil {
		logger.Warn().Err(err).Msg("Failed to record run history")
	}

	recent, err := journal.List(10)

The journal is advisory. A run never fails because its summary could not be
written.
*/
package history
