package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clicks(day string, hour, n int) []Row {
	d := types.MustParseDay(day).Time()
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Time:  d.Add(time.Duration(hour)*time.Hour + time.Duration(i)*time.Second),
			Attrs: map[string]string{"event_type": "click"},
		}
	}
	return rows
}

func newClickStore() *Memory {
	m := NewMemory()
	m.RegisterPredicate("event_type = 'click'", func(r Row) bool {
		return r.Attrs["event_type"] == "click"
	})
	m.AddTable("stat_clicks", "CREATE MATERIALIZED VIEW public.stat_clicks AS SELECT * FROM zoon.stat WHERE event_type = 'click'", "event_date", "event_time")
	return m
}

func TestMemoryHourlyCounts(t *testing.T) {
	ctx := context.Background()
	m := newClickStore()
	day := types.MustParseDay("2024-01-05")

	m.AddSource(clicks("2024-01-05", 10, 3)...)
	m.AddSource(clicks("2024-01-06", 10, 7)...)
	m.AddSource(Row{Time: day.Time().Add(11 * time.Hour), Attrs: map[string]string{"event_type": "view"}})
	m.AddViewRows("stat_clicks", clicks("2024-01-05", 10, 2)...)

	source, err := m.SourceHourlyCounts(ctx, "event_type = 'click'", day)
	require.NoError(t, err)
	assert.Equal(t, types.HourlyProfile{10: 3}, source)

	view, err := m.ViewHourlyCounts(ctx, "stat_clicks", day)
	require.NoError(t, err)
	assert.Equal(t, types.HourlyProfile{10: 2}, view)

	_, err = m.SourceHourlyCounts(ctx, "unknown = 1", day)
	assert.Error(t, err)
}

func TestMemoryDeleteInsert(t *testing.T) {
	ctx := context.Background()
	m := newClickStore()
	day := types.MustParseDay("2024-01-05")
	other := types.MustParseDay("2024-01-06")

	m.AddSource(clicks("2024-01-05", 10, 5)...)
	m.AddViewRows("stat_clicks", clicks("2024-01-05", 10, 2)...)
	m.AddViewRows("stat_clicks", clicks("2024-01-06", 3, 4)...)

	require.NoError(t, m.DeleteDays(ctx, "stat_clicks", []types.Day{day}))
	assert.Equal(t, 0, m.RowCount("stat_clicks", day))
	assert.Equal(t, 4, m.RowCount("stat_clicks", other))

	require.NoError(t, m.InsertSelect(ctx, "stat_clicks", []string{"event_date"}, "event_type = 'click'", []types.Day{day}))
	assert.Equal(t, 5, m.RowCount("stat_clicks", day))
	assert.Equal(t, 4, m.RowCount("stat_clicks", other))

	err := m.InsertSelect(ctx, "stat_clicks", nil, "event_type = 'click'", []types.Day{day})
	assert.Error(t, err)
}

func TestMemoryFailures(t *testing.T) {
	ctx := context.Background()
	m := newClickStore()
	boom := errors.New("boom")

	m.FailOn("ViewHourlyCounts", "2024-01-05", boom)

	_, err := m.ViewHourlyCounts(ctx, "stat_clicks", types.MustParseDay("2024-01-05"))
	assert.ErrorIs(t, err, boom)

	_, err = m.ViewHourlyCounts(ctx, "stat_clicks", types.MustParseDay("2024-01-06"))
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Calls("ViewHourlyCounts"))

	m.ClearFailures()
	_, err = m.ViewHourlyCounts(ctx, "stat_clicks", types.MustParseDay("2024-01-05"))
	assert.NoError(t, err)

	_, err = m.CreateStatement(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
