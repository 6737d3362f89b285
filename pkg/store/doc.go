/*
Package store provides access to the analytical store holding the source event
log and the derived views.

The Store interface is the only path by which reconciliation touches data:
discovery (tables, creation statements, columns), hourly row counts for a
single day, and the two repair phases (delete days, insert-select days).

Two implementations are provided:

  - ClickHouse: the production adapter built on clickhouse-go/v2. All SQL text
    lives in queries.go. Every call runs under a per-query timeout and a
    gobreaker circuit breaker, so a store that is clearly down fails fast
    instead of hanging the run. The delete phase is issued as an ALTER TABLE
    ... DELETE mutation with mutations_sync, so that the following insert and
    any later check see the deletion.
  - Memory: an in-process store whose predicates are bound to Go functions,
    used by tests and by anything that needs a store without a server.

Example:

	s, err := store.NewClickHouse(ctx, store.ClickHouseConfig{
		Addr:        []string{"localhost:9000"},
		Database:    "public",
		SourceTable: "zoon.stat",
		DayColumn:   "event_date",
		TimeColumn:  "event_time",
	})
	if err != nil {
		return err
	}
	defer s.Close()
*/
package store
