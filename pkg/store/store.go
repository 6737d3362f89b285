package store

import (
	"context"
	"errors"

	"github.com/cuemby/viewsync/pkg/types"
)

// ErrNotFound is returned when a table does not exist in the namespace
var ErrNotFound = errors.New("table not found")

// Store defines the analytical store operations used by reconciliation.
// Implemented by the ClickHouse adapter and by the in-memory store.
type Store interface {
	// Discovery
	ListTables(ctx context.Context) ([]string, error)
	CreateStatement(ctx context.Context, table string) (string, error)
	DescribeColumns(ctx context.Context, table string) ([]string, error)

	// Hourly row counts for a single day
	SourceHourlyCounts(ctx context.Context, predicate string, day types.Day) (types.HourlyProfile, error)
	ViewHourlyCounts(ctx context.Context, view string, day types.Day) (types.HourlyProfile, error)

	// Partition repair
	DeleteDays(ctx context.Context, view string, days []types.Day) error
	InsertSelect(ctx context.Context, view string, projection []string, predicate string, days []types.Day) error

	// Utility
	Ping(ctx context.Context) error
	Close() error
}
