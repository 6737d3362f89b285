package drift

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
)

// Side names the profile a query failed on
type Side string

const (
	SideSource Side = "source"
	SideView   Side = "view"
)

// QueryError means a (view, day) could not be checked. It says nothing about
// whether the day is in drift.
type QueryError struct {
	View string
	Day  types.Day
	Side Side
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("check %s on %s failed (%s counts): %v", e.View, e.Day, e.Side, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Detector compares hourly row counts of the source log and a view
type Detector struct {
	store  store.Store
	logger zerolog.Logger
}

// NewDetector creates a drift detector
func NewDetector(s store.Store) *Detector {
	return &Detector{
		store:  s,
		logger: log.WithComponent("drift"),
	}
}

// Detect builds both hourly profiles for the day and reports disagreeing hours
func (d *Detector) Detect(ctx context.Context, view types.ViewDefinition, day types.Day) (types.DriftReport, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CheckDuration)

	source, err := d.store.SourceHourlyCounts(ctx, view.Predicate, day)
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues(view.Name).Inc()
		return types.DriftReport{}, &QueryError{View: view.Name, Day: day, Side: SideSource, Err: err}
	}

	target, err := d.store.ViewHourlyCounts(ctx, view.Name, day)
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues(view.Name).Inc()
		return types.DriftReport{}, &QueryError{View: view.Name, Day: day, Side: SideView, Err: err}
	}

	report := types.DriftReport{
		View:   view.Name,
		Day:    day,
		Hours:  Compare(source, target),
		Source: source,
		Target: target,
	}

	logger := log.ForDay(d.logger, view.Name, day)
	if report.Drifted() {
		logger.Info().
			Ints("hours", report.Hours).
			Uint64("source_rows", source.Total()).
			Uint64("view_rows", target.Total()).
			Msg("Drift detected")
	} else {
		logger.Debug().Msg("Day in sync")
	}
	return report, nil
}

// Compare outer-joins two profiles on hour. An hour present on one side
// only, or with unequal counts, is drifted. Hours are returned ascending.
func Compare(source, target types.HourlyProfile) []int {
	var hours []int
	for h, n := range source {
		if m, ok := target[h]; !ok || m != n {
			hours = append(hours, h)
		}
	}
	for h := range target {
		if _, ok := source[h]; !ok {
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)
	return hours
}
