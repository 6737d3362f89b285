package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker guarding store calls
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ClickHouseConfig holds connection and schema settings
type ClickHouseConfig struct {
	Addr          []string
	Database      string // namespace holding the views
	Username      string
	Password      string
	SourceTable   string // qualified source log, e.g. zoon.stat
	DayColumn     string
	TimeColumn    string
	DialTimeout   time.Duration
	QueryTimeout  time.Duration
	MutationsSync int
	Breaker       BreakerConfig
}

// ClickHouse implements Store against a ClickHouse server
type ClickHouse struct {
	conn    driver.Conn
	queries queries
	cfg     ClickHouseConfig
	cb      *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClickHouse opens a connection and verifies it with a ping
func NewClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	s := &ClickHouse{
		conn:    conn,
		queries: newQueries(cfg),
		cfg:     cfg,
		logger:  log.WithComponent("store"),
	}
	s.cb = newBreaker("clickhouse", cfg.Breaker, s.logger)

	if err := s.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to reach clickhouse at %s: %w", strings.Join(cfg.Addr, ","), err)
	}
	return s, nil
}

func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !storeUnavailable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// storeUnavailable reports whether err says the server itself is unreachable
// or failing. Exceptions raised by the server for one statement (a missing
// column, a bad predicate) and caller cancellation leave the breaker alone.
func storeUnavailable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var exc *clickhouse.Exception
	return !errors.As(err, &exc)
}

// do runs fn under the breaker and the per-query timeout
func (s *ClickHouse) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *ClickHouse) selectStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	var out []string
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func (s *ClickHouse) hourlyCounts(ctx context.Context, query string) (types.HourlyProfile, error) {
	profile := make(types.HourlyProfile)
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				hour  uint8
				count uint64
			)
			if err := rows.Scan(&hour, &count); err != nil {
				return err
			}
			profile[int(hour)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ClickHouse) ListTables(ctx context.Context) ([]string, error) {
	q, args := s.queries.listTables()
	tables, err := s.selectStrings(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", s.cfg.Database, err)
	}
	return tables, nil
}

func (s *ClickHouse) CreateStatement(ctx context.Context, table string) (string, error) {
	var statement string
	err := s.do(ctx, func(ctx context.Context) error {
		return s.conn.QueryRow(ctx, s.queries.showCreate(table)).Scan(&statement)
	})
	if err != nil {
		return "", fmt.Errorf("failed to show create table %s: %w", table, err)
	}
	return statement, nil
}

func (s *ClickHouse) DescribeColumns(ctx context.Context, table string) ([]string, error) {
	q, args := s.queries.describeColumns(table)
	columns, err := s.selectStrings(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return columns, nil
}

func (s *ClickHouse) SourceHourlyCounts(ctx context.Context, predicate string, day types.Day) (types.HourlyProfile, error) {
	q := s.queries.sourceHourly(predicate, day)
	s.logger.Debug().Str("query", q).Msg("Counting source rows")
	return s.hourlyCounts(ctx, q)
}

func (s *ClickHouse) ViewHourlyCounts(ctx context.Context, view string, day types.Day) (types.HourlyProfile, error) {
	q := s.queries.viewHourly(view, day)
	s.logger.Debug().Str("query", q).Msg("Counting view rows")
	return s.hourlyCounts(ctx, q)
}

func (s *ClickHouse) DeleteDays(ctx context.Context, view string, days []types.Day) error {
	q := s.queries.deleteDays(view, days)
	s.logger.Debug().Str("query", q).Msg("Deleting view partitions")

	return s.do(ctx, func(ctx context.Context) error {
		if s.cfg.MutationsSync > 0 {
			ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
				"mutations_sync": s.cfg.MutationsSync,
			}))
		}
		return s.conn.Exec(ctx, q)
	})
}

func (s *ClickHouse) InsertSelect(ctx context.Context, view string, projection []string, predicate string, days []types.Day) error {
	if len(projection) == 0 {
		return fmt.Errorf("empty projection for %s", view)
	}
	q := s.queries.insertSelect(view, projection, predicate, days)
	s.logger.Debug().Str("query", q).Msg("Re-inserting view partitions")

	return s.do(ctx, func(ctx context.Context) error {
		return s.conn.Exec(ctx, q)
	})
}

func (s *ClickHouse) Ping(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.conn.Ping(ctx)
	})
}

func (s *ClickHouse) Close() error {
	return s.conn.Close()
}
