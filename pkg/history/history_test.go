package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T, keep int) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "history.db"), keep)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func summaryAt(id string, at time.Time) *types.ReconciliationSummary {
	s := types.NewReconciliationSummary(id, at)
	s.FinishedAt = at.Add(time.Minute)
	return s
}

func TestRecordAndList(t *testing.T) {
	j := openJournal(t, 0)
	base := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, j.Record(summaryAt(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-a", runs[2].RunID)

	runs, err = j.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordRequiresRunID(t *testing.T) {
	j := openJournal(t, 0)
	assert.Error(t, j.Record(summaryAt("", time.Now())))
}

func TestPrune(t *testing.T) {
	j := openJournal(t, 2)
	base := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c", "run-d"} {
		require.NoError(t, j.Record(summaryAt(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-d", runs[0].RunID)
	assert.Equal(t, "run-c", runs[1].RunID)
}

func TestGetAndLast(t *testing.T) {
	j := openJournal(t, 0)

	_, err := j.Last()
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)
	first := summaryAt("run-a", base)
	first.RecordRepair("stat_clicks", []types.Day{types.MustParseDay("2024-02-28")})
	require.NoError(t, j.Record(first))
	require.NoError(t, j.Record(summaryAt("run-b", base.Add(time.Hour))))

	got, err := j.Get("run-a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Repaired["stat_clicks"])
	require.Len(t, got.Entries, 1)
	assert.Equal(t, types.MustParseDay("2024-02-28"), got.Entries[0].Days[0])

	last, err := j.Last()
	require.NoError(t, err)
	assert.Equal(t, "run-b", last.RunID)

	_, err = j.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewRecords(t *testing.T) {
	j := openJournal(t, 0)
	base := time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)

	first := summaryAt("run-a", base)
	first.RecordRepair("stat_clicks", []types.Day{types.MustParseDay("2024-02-27")})
	require.NoError(t, j.Record(first))

	second := summaryAt("run-b", base.Add(24*time.Hour))
	second.RecordRepair("stat_clicks", []types.Day{types.MustParseDay("2024-02-28"), types.MustParseDay("2024-02-29")})
	second.RecordRepair("stat_views", []types.Day{types.MustParseDay("2024-02-28")})
	require.NoError(t, j.Record(second))

	records, err := j.Views()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "stat_clicks", records[0].View)
	assert.Equal(t, "run-b", records[0].RunID)
	assert.Len(t, records[0].Days, 2)
	assert.True(t, second.FinishedAt.Equal(records[0].RepairedAt))
	assert.Equal(t, "stat_views", records[1].View)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, j.Record(summaryAt("run-a", time.Now())))
	require.NoError(t, j.Close())

	j, err = Open(path, 0)
	require.NoError(t, err)
	defer j.Close()

	last, err := j.Last()
	require.NoError(t, err)
	assert.Equal(t, "run-a", last.RunID)
}
