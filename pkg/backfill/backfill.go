package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrNoDays is returned when Backfill is called without days
	ErrNoDays = errors.New("backfill requires at least one day")

	// ErrSuppressed is returned for views whose repair path is disabled
	ErrSuppressed = errors.New("backfill is suppressed for this view")
)

// Phase identifies the step of a backfill
type Phase string

const (
	PhaseDelete Phase = "delete"
	PhaseInsert Phase = "insert"
)

// BackfillError reports the phase a backfill stopped in. After a failed
// insert the days stay deleted until the next run detects and repairs them.
type BackfillError struct {
	View  string
	Phase Phase
	Days  []types.Day
	Err   error
}

func (e *BackfillError) Error() string {
	return fmt.Sprintf("backfill of %s failed in %s phase (%d day(s)): %v", e.View, e.Phase, len(e.Days), e.Err)
}

func (e *BackfillError) Unwrap() error {
	return e.Err
}

// Executor repairs view partitions by deleting and re-inserting whole days
type Executor struct {
	store  store.Store
	logger zerolog.Logger
}

// NewExecutor creates a backfill executor
func NewExecutor(s store.Store) *Executor {
	return &Executor{
		store:  s,
		logger: log.WithComponent("backfill"),
	}
}

// Backfill deletes the view's rows for days and re-runs the view's query over
// the source log for the same days. The two phases are not atomic.
func (e *Executor) Backfill(ctx context.Context, view types.ViewDefinition, days []types.Day) error {
	if view.Suppressed {
		return ErrSuppressed
	}
	days = types.SortDays(days)
	if len(days) == 0 {
		return ErrNoDays
	}

	logger := log.ForView(e.logger, view.Name).With().Int("days", len(days)).Logger()
	logger.Info().
		Str("first", days[0].String()).
		Str("last", days[len(days)-1].String()).
		Msg("Starting backfill")

	timer := metrics.NewTimer()
	if err := e.store.DeleteDays(ctx, view.Name, days); err != nil {
		metrics.BackfillsTotal.WithLabelValues(view.Name, "failed").Inc()
		return &BackfillError{View: view.Name, Phase: PhaseDelete, Days: days, Err: err}
	}
	timer.ObserveDurationVec(metrics.BackfillDuration, string(PhaseDelete))

	timer = metrics.NewTimer()
	if err := e.store.InsertSelect(ctx, view.Name, view.Projection, view.Predicate, days); err != nil {
		metrics.BackfillsTotal.WithLabelValues(view.Name, "failed").Inc()
		logger.Error().Err(err).Msg("Insert failed after delete; days stay empty until the next run")
		return &BackfillError{View: view.Name, Phase: PhaseInsert, Days: days, Err: err}
	}
	timer.ObserveDurationVec(metrics.BackfillDuration, string(PhaseInsert))

	metrics.BackfillsTotal.WithLabelValues(view.Name, "success").Inc()
	metrics.BackfillDaysTotal.WithLabelValues(view.Name).Add(float64(len(days)))
	logger.Info().Msg("Backfill completed")
	return nil
}
