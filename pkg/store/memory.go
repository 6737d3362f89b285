package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/viewsync/pkg/types"
)

// Row is an event of the in-memory source log or view
type Row struct {
	Time  time.Time
	Attrs map[string]string
}

// Day returns the calendar day of the row in UTC
func (r Row) Day() types.Day {
	return types.DayOf(r.Time.UTC())
}

// Predicate evaluates a view's filter against a source row
type Predicate func(Row) bool

type memTable struct {
	statement string
	columns   []string
	rows      []Row
}

type memFailure struct {
	key string
	err error
}

// Memory is an in-process Store. Predicates are opaque strings bound to Go
// functions with RegisterPredicate; an unbound predicate is a query error.
type Memory struct {
	mu         sync.Mutex
	source     []Row
	tables     map[string]*memTable
	predicates map[string]Predicate
	failures   map[string][]memFailure
	calls      map[string]int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		tables:     make(map[string]*memTable),
		predicates: make(map[string]Predicate),
		failures:   make(map[string][]memFailure),
		calls:      make(map[string]int),
	}
}

// AddSource appends rows to the source log
func (m *Memory) AddSource(rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = append(m.source, rows...)
}

// AddTable registers a table with its creation statement and columns
func (m *Memory) AddTable(name, statement string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memTable{statement: statement, columns: columns}
}

// AddViewRows appends rows directly to a table, bypassing the source log
func (m *Memory) AddViewRows(name string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[name]; ok {
		t.rows = append(t.rows, rows...)
	}
}

// RegisterPredicate binds predicate text to an evaluator
func (m *Memory) RegisterPredicate(expr string, fn Predicate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predicates[expr] = fn
}

// FailOn makes op return err. An empty key matches every call; otherwise the
// key is compared against the table name, the day, or the predicate text.
func (m *Memory) FailOn(op, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], memFailure{key: key, err: err})
}

// ClearFailures removes all injected failures
func (m *Memory) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string][]memFailure)
}

// Calls returns how many times op was invoked
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// RowCount returns the number of rows of a table for a day
func (m *Memory) RowCount(table string, day types.Day) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if r.Day() == day {
			n++
		}
	}
	return n
}

// enter records the call and returns any injected failure. Caller holds mu.
func (m *Memory) enter(op string, keys ...string) error {
	m.calls[op]++
	for _, f := range m.failures[op] {
		if f.key == "" {
			return f.err
		}
		for _, k := range keys {
			if f.key == k {
				return f.err
			}
		}
	}
	return nil
}

func (m *Memory) ListTables(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTables"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) CreateStatement(ctx context.Context, table string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateStatement", table); err != nil {
		return "", err
	}

	t, ok := m.tables[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return t.statement, nil
}

func (m *Memory) DescribeColumns(ctx context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DescribeColumns", table); err != nil {
		return nil, err
	}

	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return append([]string(nil), t.columns...), nil
}

func (m *Memory) SourceHourlyCounts(ctx context.Context, predicate string, day types.Day) (types.HourlyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SourceHourlyCounts", predicate, day.String()); err != nil {
		return nil, err
	}

	match, ok := m.predicates[predicate]
	if !ok {
		return nil, fmt.Errorf("unknown predicate: %s", predicate)
	}

	profile := make(types.HourlyProfile)
	for _, r := range m.source {
		if r.Day() == day && match(r) {
			profile[r.Time.UTC().Hour()]++
		}
	}
	return profile, nil
}

func (m *Memory) ViewHourlyCounts(ctx context.Context, view string, day types.Day) (types.HourlyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ViewHourlyCounts", view, day.String()); err != nil {
		return nil, err
	}

	t, ok := m.tables[view]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, view)
	}

	profile := make(types.HourlyProfile)
	for _, r := range t.rows {
		if r.Day() == day {
			profile[r.Time.UTC().Hour()]++
		}
	}
	return profile, nil
}

func (m *Memory) DeleteDays(ctx context.Context, view string, days []types.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteDays", view); err != nil {
		return err
	}

	t, ok := m.tables[view]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, view)
	}

	drop := daySet(days)
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !drop[r.Day()] {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

func (m *Memory) InsertSelect(ctx context.Context, view string, projection []string, predicate string, days []types.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertSelect", view); err != nil {
		return err
	}

	t, ok := m.tables[view]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, view)
	}
	if len(projection) == 0 {
		return fmt.Errorf("empty projection for %s", view)
	}
	match, ok := m.predicates[predicate]
	if !ok {
		return fmt.Errorf("unknown predicate: %s", predicate)
	}

	want := daySet(days)
	for _, r := range m.source {
		if want[r.Day()] && match(r) {
			t.rows = append(t.rows, r)
		}
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Ping")
}

func (m *Memory) Close() error {
	return nil
}

func daySet(days []types.Day) map[types.Day]bool {
	set := make(map[types.Day]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
