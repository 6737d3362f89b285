package store

import (
	"testing"

	"github.com/cuemby/viewsync/pkg/types"
	"github.com/stretchr/testify/assert"
)

func testQueries() queries {
	return newQueries(ClickHouseConfig{
		Database:    "public",
		SourceTable: "zoon.stat",
		DayColumn:   "event_date",
		TimeColumn:  "event_time",
	})
}

func TestSourceHourlyQuery(t *testing.T) {
	q := testQueries()
	got := q.sourceHourly("event_type = 'click' or event_type = 'view'", types.MustParseDay("2024-01-05"))

	assert.Equal(t,
		"SELECT toHour(`event_time`) AS hour, count() AS rows FROM `zoon`.`stat` "+
			"WHERE (event_type = 'click' or event_type = 'view') AND `event_date` = '2024-01-05' "+
			"GROUP BY hour ORDER BY hour",
		got)
}

func TestViewHourlyQuery(t *testing.T) {
	q := testQueries()
	got := q.viewHourly("stat_events", types.MustParseDay("2024-01-05"))

	assert.Equal(t,
		"SELECT toHour(`event_time`) AS hour, count() AS rows FROM `public`.`stat_events` "+
			"WHERE `event_date` = '2024-01-05' GROUP BY hour ORDER BY hour",
		got)
}

func TestDeleteDaysQuery(t *testing.T) {
	q := testQueries()
	days := []types.Day{types.MustParseDay("2024-01-05"), types.MustParseDay("2024-01-09")}

	assert.Equal(t,
		"ALTER TABLE `public`.`stat_events` DELETE WHERE `event_date` IN ('2024-01-05', '2024-01-09')",
		q.deleteDays("stat_events", days))
}

func TestInsertSelectQuery(t *testing.T) {
	q := testQueries()
	days := []types.Day{types.MustParseDay("2024-01-05")}
	projection := []string{
		"event_date",
		"event_time",
		"multiIf(object_type = 'prof', object_id, ev_sourceId) prof_id",
	}

	assert.Equal(t,
		"INSERT INTO `public`.`stat_events` SELECT event_date, event_time, "+
			"multiIf(object_type = 'prof', object_id, ev_sourceId) prof_id "+
			"FROM `zoon`.`stat` WHERE (event_type = 'click') AND `event_date` IN ('2024-01-05')",
		q.insertSelect("stat_events", projection, "event_type = 'click'", days))
}

func TestDiscoveryQueries(t *testing.T) {
	q := testQueries()

	query, args := q.listTables()
	assert.Contains(t, query, "system.tables")
	assert.Equal(t, []interface{}{"public"}, args)

	query, args = q.describeColumns("stat_events")
	assert.Contains(t, query, "ORDER BY position")
	assert.Equal(t, []interface{}{"public", "stat_events"}, args)

	assert.Equal(t, "SHOW CREATE TABLE `public`.`stat_events`", q.showCreate("stat_events"))
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "`a\\`b`", quoteIdent("a`b"))
	assert.Equal(t, "`stat`", quoteQualified("stat"))
	assert.Equal(t, "`zoon`.`stat`", quoteQualified("zoon.stat"))
}
