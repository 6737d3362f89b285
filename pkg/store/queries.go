package store

import (
	"fmt"
	"strings"

	"github.com/cuemby/viewsync/pkg/types"
)

// queries renders the ClickHouse statements issued by the adapter. Day values
// are formatted from integers and identifiers are backquoted; predicates and
// projections come verbatim from view definitions.
type queries struct {
	database   string
	source     string
	dayColumn  string
	timeColumn string
}

func newQueries(cfg ClickHouseConfig) queries {
	return queries{
		database:   cfg.Database,
		source:     quoteQualified(cfg.SourceTable),
		dayColumn:  quoteIdent(cfg.DayColumn),
		timeColumn: quoteIdent(cfg.TimeColumn),
	}
}

func (q queries) view(name string) string {
	return quoteIdent(q.database) + "." + quoteIdent(name)
}

func (q queries) listTables() (string, []interface{}) {
	return "SELECT name FROM system.tables WHERE database = ? ORDER BY name", []interface{}{q.database}
}

func (q queries) showCreate(table string) string {
	return "SHOW CREATE TABLE " + q.view(table)
}

func (q queries) describeColumns(table string) (string, []interface{}) {
	return "SELECT name FROM system.columns WHERE database = ? AND table = ? ORDER BY position",
		[]interface{}{q.database, table}
}

func (q queries) sourceHourly(predicate string, day types.Day) string {
	return fmt.Sprintf(
		"SELECT toHour(%s) AS hour, count() AS rows FROM %s WHERE (%s) AND %s = %s GROUP BY hour ORDER BY hour",
		q.timeColumn, q.source, predicate, q.dayColumn, dayLiteral(day),
	)
}

func (q queries) viewHourly(view string, day types.Day) string {
	return fmt.Sprintf(
		"SELECT toHour(%s) AS hour, count() AS rows FROM %s WHERE %s = %s GROUP BY hour ORDER BY hour",
		q.timeColumn, q.view(view), q.dayColumn, dayLiteral(day),
	)
}

func (q queries) deleteDays(view string, days []types.Day) string {
	return fmt.Sprintf(
		"ALTER TABLE %s DELETE WHERE %s IN (%s)",
		q.view(view), q.dayColumn, dayList(days),
	)
}

func (q queries) insertSelect(view string, projection []string, predicate string, days []types.Day) string {
	return fmt.Sprintf(
		"INSERT INTO %s SELECT %s FROM %s WHERE (%s) AND %s IN (%s)",
		q.view(view), strings.Join(projection, ", "), q.source, predicate, q.dayColumn, dayList(days),
	)
}

func dayLiteral(d types.Day) string {
	return "'" + d.String() + "'"
}

func dayList(days []types.Day) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = dayLiteral(d)
	}
	return strings.Join(parts, ", ")
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// quoteQualified quotes a database.table reference part by part
func quoteQualified(name string) string {
	db, table, ok := strings.Cut(name, ".")
	if !ok {
		return quoteIdent(name)
	}
	return quoteIdent(db) + "." + quoteIdent(table)
}
