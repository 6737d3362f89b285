package store_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/cuemby/viewsync/pkg/reconciler"
	"github.com/cuemby/viewsync/pkg/registry"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClickHouseReconcile runs a full repair against a live server:
// create source and view → add stray view rows → reconcile → verify counts.
// Set VIEWSYNC_TEST_CLICKHOUSE_ADDR (host:port of the native protocol) to run.
func TestClickHouseReconcile(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	addr := os.Getenv("VIEWSYNC_TEST_CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("VIEWSYNC_TEST_CLICKHOUSE_ADDR not set")
	}

	ctx := context.Background()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	srcDB, viewDB := "vs_src_"+suffix, "vs_views_"+suffix

	conn, err := clickhouse.Open(&clickhouse.Options{Addr: []string{addr}})
	require.NoError(t, err)
	defer conn.Close()

	t.Log("Step 1: Creating source log and materialized view...")
	ddl := []string{
		fmt.Sprintf("CREATE DATABASE %s", srcDB),
		fmt.Sprintf("CREATE DATABASE %s", viewDB),
		fmt.Sprintf(`CREATE TABLE %s.stat (event_date Date, event_time DateTime('UTC'), event_type String)
			ENGINE = MergeTree ORDER BY event_time`, srcDB),
		fmt.Sprintf(`CREATE MATERIALIZED VIEW %s.stat_clicks ENGINE = MergeTree ORDER BY event_time
			AS SELECT event_date, event_time, event_type FROM %s.stat WHERE event_type = 'click'`, viewDB, srcDB),
	}
	t.Cleanup(func() {
		_ = conn.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", viewDB))
		_ = conn.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", srcDB))
	})
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(ctx, stmt))
	}
	t.Log("✓ Schema created")

	day := types.MustParseDay("2024-01-08")
	at := day.Time().Add(10 * time.Hour)

	t.Log("Step 2: Inserting 100 clicks and 5 stray view rows...")
	require.NoError(t, conn.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s.stat SELECT toDate('%s'), toDateTime('%s', 'UTC') + number, 'click' FROM numbers(100)`,
		srcDB, day, at.Format("2006-01-02 15:04:05"))))
	require.NoError(t, conn.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s.stat_clicks SELECT toDate('%s'), toDateTime('%s', 'UTC') + number, 'click' FROM numbers(5)`,
		viewDB, day, at.Format("2006-01-02 15:04:05"))))
	t.Log("✓ View holds 105 rows for 100 source rows")

	t.Log("Step 3: Reconciling...")
	s, err := store.NewClickHouse(ctx, store.ClickHouseConfig{
		Addr:          []string{addr},
		Database:      viewDB,
		SourceTable:   srcDB + ".stat",
		DayColumn:     "event_date",
		TimeColumn:    "event_time",
		DialTimeout:   5 * time.Second,
		QueryTimeout:  time.Minute,
		MutationsSync: 2,
	})
	require.NoError(t, err)
	defer s.Close()

	clock := func() time.Time { return day.Time().Add(36 * time.Hour) }
	r := reconciler.NewReconciler(s,
		registry.Config{HiddenPrefixes: []string{"."}},
		reconciler.Config{WindowDays: 2, EndOffset: 1},
		reconciler.WithClock(clock))

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ViewsSeen)
	assert.Equal(t, map[string]int{"stat_clicks": 1}, summary.Repaired)
	assert.Empty(t, summary.Unchecked)
	t.Log("✓ View repaired")

	t.Log("Step 4: Verifying...")
	profile, err := s.ViewHourlyCounts(ctx, "stat_clicks", day)
	require.NoError(t, err)
	assert.Equal(t, types.HourlyProfile{10: 100}, profile)

	again, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, again.Clean())
	t.Log("✓ Second run finds nothing to repair")
}
