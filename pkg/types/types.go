package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayLayout is the textual form of a Day, matching ClickHouse Date literals
const DayLayout = "2006-01-02"

// Day is a calendar date with no time-of-day component
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in t's location
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD string
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// MustParseDay is ParseDay for literals known to be valid
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of the day
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d (n may be negative)
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// IsZero reports whether d is the zero Day
func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SortDays returns a sorted copy of days with duplicates removed
func SortDays(days []Day) []Day {
	seen := make(map[Day]bool, len(days))
	out := make([]Day, 0, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DayWindow is a contiguous ascending run of calendar days
type DayWindow []Day

// NewDayWindow returns the trailing window ending endOffset days before today.
// With size 30 and endOffset 1 the window spans today-30 through yesterday.
// Today itself is never part of a window.
func NewDayWindow(now time.Time, size, endOffset int) (DayWindow, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	if endOffset < 1 {
		return nil, fmt.Errorf("window end offset must be at least 1, got %d", endOffset)
	}
	if endOffset > size {
		return nil, fmt.Errorf("window end offset %d is beyond its size %d, no day would be checked", endOffset, size)
	}

	today := DayOf(now)
	first := today.AddDays(-size)
	last := today.AddDays(-endOffset)

	var window DayWindow
	for d := first; !last.Before(d); d = d.AddDays(1) {
		window = append(window, d)
	}
	return window, nil
}

// First returns the earliest day, or the zero Day for an empty window
func (w DayWindow) First() Day {
	if len(w) == 0 {
		return Day{}
	}
	return w[0]
}

// Last returns the most recent day, or the zero Day for an empty window
func (w DayWindow) Last() Day {
	if len(w) == 0 {
		return Day{}
	}
	return w[len(w)-1]
}

// ViewDefinition is the structured form of a derived view, populated once per
// run at discovery time
type ViewDefinition struct {
	Name       string
	Predicate  string   // source-log filter taken from the view's creation statement
	Projection []string // ordered column expressions for re-insertion
	Suppressed bool     // drift is alerted on, never backfilled
}

// HourlyProfile maps hour-of-day (0-23) to a row count for a single day
type HourlyProfile map[int]uint64

// Hours returns the hours present in the profile in ascending order
func (p HourlyProfile) Hours() []int {
	hours := make([]int, 0, len(p))
	for h := range p {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// Total returns the sum of all hourly counts
func (p HourlyProfile) Total() uint64 {
	var total uint64
	for _, n := range p {
		total += n
	}
	return total
}

// DriftReport lists the hours of a (view, day) whose counts disagree
type DriftReport struct {
	View   string
	Day    Day
	Hours  []int
	Source HourlyProfile
	Target HourlyProfile
}

// Drifted reports whether any hour disagrees
func (r DriftReport) Drifted() bool {
	return len(r.Hours) > 0
}

// ViewDriftAccumulator collects drift for one view across the scan window
type ViewDriftAccumulator struct {
	View       ViewDefinition
	Days       []Day // drifted days in scan order
	Unchecked  []Day // days whose check failed; never counted as clean or drifted
	Suppressed bool
	AlertDays  int
}

// NewViewDriftAccumulator creates an empty accumulator for a view
func NewViewDriftAccumulator(view ViewDefinition) *ViewDriftAccumulator {
	return &ViewDriftAccumulator{
		View:       view,
		Suppressed: view.Suppressed,
	}
}

// RecordDrift notes a drifted day. Suppressed views only count the day.
func (a *ViewDriftAccumulator) RecordDrift(day Day) {
	if a.Suppressed {
		a.AlertDays++
		return
	}
	a.Days = append(a.Days, day)
}

// RecordUnchecked notes a day that could not be checked
func (a *ViewDriftAccumulator) RecordUnchecked(day Day) {
	a.Unchecked = append(a.Unchecked, day)
}

// NeedsBackfill reports whether the repair phase should act on this view
func (a *ViewDriftAccumulator) NeedsBackfill() bool {
	return !a.Suppressed && len(a.Days) > 0
}

// RepairEntry records a completed backfill
type RepairEntry struct {
	View string `json:"view" yaml:"view"`
	Days []Day  `json:"days" yaml:"days"`
}

// RepairFailure records a backfill that did not complete
type RepairFailure struct {
	View  string `json:"view" yaml:"view"`
	Days  []Day  `json:"days" yaml:"days"`
	Phase string `json:"phase" yaml:"phase"`
	Error string `json:"error" yaml:"error"`
}

// Alert records drift on a backfill-suppressed view
type Alert struct {
	View string `json:"view" yaml:"view"`
	Days int    `json:"days" yaml:"days"`
}

// SkippedView records a view excluded at discovery
type SkippedView struct {
	View   string `json:"view" yaml:"view"`
	Reason string `json:"reason" yaml:"reason"`
}

// UncheckedDay records a (view, day) whose drift check failed
type UncheckedDay struct {
	View  string `json:"view" yaml:"view"`
	Day   Day    `json:"day" yaml:"day"`
	Error string `json:"error" yaml:"error"`
}

// ReconciliationSummary is the outcome of a single run
type ReconciliationSummary struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Window     DayWindow       `json:"window" yaml:"window"`
	DryRun     bool            `json:"dry_run" yaml:"dry_run"`
	ViewsSeen  int             `json:"views_seen" yaml:"views_seen"`
	Repaired   map[string]int  `json:"repaired" yaml:"repaired"`
	Entries    []RepairEntry   `json:"entries,omitempty" yaml:"entries,omitempty"`
	Pending    []RepairEntry   `json:"pending,omitempty" yaml:"pending,omitempty"` // drift left unrepaired by a dry run
	Failures   []RepairFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Alerts     []Alert         `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Skipped    []SkippedView   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Unchecked  []UncheckedDay  `json:"unchecked,omitempty" yaml:"unchecked,omitempty"`
	Report     string          `json:"report" yaml:"report"`
}

// NewReconciliationSummary creates an empty summary
func NewReconciliationSummary(runID string, startedAt time.Time) *ReconciliationSummary {
	return &ReconciliationSummary{
		RunID:     runID,
		StartedAt: startedAt,
		Repaired:  make(map[string]int),
	}
}

// RecordRepair records a completed backfill for a view
func (s *ReconciliationSummary) RecordRepair(view string, days []Day) {
	s.Repaired[view] = len(days)
	s.Entries = append(s.Entries, RepairEntry{View: view, Days: days})
}

// AlertDays returns the total drifted days over all suppressed views
func (s *ReconciliationSummary) AlertDays() int {
	total := 0
	for _, a := range s.Alerts {
		total += a.Days
	}
	return total
}

// Clean reports whether every day was checked and nothing needed repair or
// an alert
func (s *ReconciliationSummary) Clean() bool {
	return len(s.Entries) == 0 && len(s.Pending) == 0 && len(s.Failures) == 0 &&
		len(s.Unchecked) == 0 && s.AlertDays() == 0
}
