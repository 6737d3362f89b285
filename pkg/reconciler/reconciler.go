package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/viewsync/pkg/backfill"
	"github.com/cuemby/viewsync/pkg/drift"
	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/registry"
	"github.com/cuemby/viewsync/pkg/report"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrViewNotFound is returned by Check for a name discovery did not yield
var ErrViewNotFound = errors.New("view not found")

// Deliverer sends run messages. Delivery failures are its own concern.
type Deliverer interface {
	Deliver(ctx context.Context, msgs []report.Message) int
}

// Journal records finished runs
type Journal interface {
	Record(s *types.ReconciliationSummary) error
}

// Config controls a reconciler
type Config struct {
	WindowDays int
	EndOffset  int
	Location   *time.Location // zone "today" is computed in; nil means UTC
	DryRun     bool
	Phrasebook *report.Phrasebook // nil means report.English
}

// Option customizes a reconciler
type Option func(*Reconciler)

// WithNotifier sends run messages through d
func WithNotifier(d Deliverer) Option {
	return func(r *Reconciler) { r.notifier = d }
}

// WithJournal records every finished run in j
func WithJournal(j Journal) Option {
	return func(r *Reconciler) { r.journal = j }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler brings views back in line with the source log
type Reconciler struct {
	registry   *registry.Registry
	detector   *drift.Detector
	executor   *backfill.Executor
	suppressed []string
	notifier   Deliverer
	journal    Journal
	cfg        Config
	phrases    report.Phrasebook
	now        func() time.Time
	logger     zerolog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReconciler creates a reconciler over s
func NewReconciler(s store.Store, views registry.Config, cfg Config, opts ...Option) *Reconciler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	phrases := report.English
	if cfg.Phrasebook != nil {
		phrases = *cfg.Phrasebook
	}

	r := &Reconciler{
		registry:   registry.NewRegistry(s, views),
		detector:   drift.NewDetector(s),
		executor:   backfill.NewExecutor(s),
		suppressed: views.Suppressed,
		cfg:        cfg,
		phrases:    phrases,
		now:        time.Now,
		logger:     log.WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one reconciliation: scan every view over the window, repair
// drifted views, then report. Only a failed discovery or a cancelled context
// returns an error; per-day and per-view problems land in the summary.
func (r *Reconciler) Run(ctx context.Context) (*types.ReconciliationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	started := r.now()
	summary := types.NewReconciliationSummary(uuid.NewString(), started)
	summary.DryRun = r.cfg.DryRun
	logger := log.ForRun("reconciler", summary.RunID)

	window, err := types.NewDayWindow(started.In(r.cfg.Location), r.cfg.WindowDays, r.cfg.EndOffset)
	if err != nil {
		metrics.RecordRun("failed", r.now())
		return nil, err
	}
	summary.Window = window

	logger.Info().
		Str("first", window.First().String()).
		Str("last", window.Last().String()).
		Bool("dry_run", r.cfg.DryRun).
		Msg("Reconciliation started")

	views, skipped, err := r.registry.Discover(ctx)
	if err != nil {
		metrics.RecordRun("failed", r.now())
		logger.Error().Err(err).Msg("View discovery failed")
		return nil, err
	}
	metrics.ViewsDiscovered.Set(float64(len(views)))
	metrics.ViewsSkipped.Set(float64(len(skipped)))

	summary.ViewsSeen = len(views)
	for _, derr := range skipped {
		summary.Skipped = append(summary.Skipped, types.SkippedView{View: derr.View, Reason: derr.Error()})
	}

	accs, err := r.scan(ctx, views, window, summary, logger)
	if err != nil {
		metrics.RecordRun("aborted", r.now())
		return summary, err
	}
	r.alert(accs, summary)

	if r.cfg.DryRun {
		for _, acc := range accs {
			if acc.NeedsBackfill() {
				summary.Pending = append(summary.Pending, types.RepairEntry{View: acc.View.Name, Days: acc.Days})
			}
		}
	} else {
		r.repair(ctx, accs, summary, logger)
	}

	summary.FinishedAt = r.now()
	summary.Report = r.phrases.Text(summary)
	r.finish(ctx, summary, logger)

	timer.ObserveDuration(metrics.RunDuration)
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))
	if len(summary.Failures) > 0 || len(summary.Unchecked) > 0 {
		metrics.RecordRun("partial", r.now())
	} else {
		metrics.RecordRun("success", r.now())
	}

	logger.Info().
		Int("views", summary.ViewsSeen).
		Int("repaired", len(summary.Entries)).
		Int("pending", len(summary.Pending)).
		Int("failed", len(summary.Failures)).
		Int("unchecked_days", len(summary.Unchecked)).
		Int("alert_days", summary.AlertDays()).
		Dur("duration", timer.Duration()).
		Msg("Reconciliation finished")
	return summary, nil
}

// scan checks every (view, day) pair in chronological order
func (r *Reconciler) scan(ctx context.Context, views []types.ViewDefinition, window types.DayWindow, summary *types.ReconciliationSummary, logger zerolog.Logger) ([]*types.ViewDriftAccumulator, error) {
	accs := make([]*types.ViewDriftAccumulator, 0, len(views))

	for _, view := range views {
		acc := types.NewViewDriftAccumulator(view)
		accs = append(accs, acc)

		for _, day := range window {
			if err := ctx.Err(); err != nil {
				return accs, err
			}

			rep, err := r.detector.Detect(ctx, view, day)
			if err != nil {
				dayLog := log.ForDay(logger, view.Name, day)
				dayLog.Warn().Err(err).Msg("Day left unchecked")
				acc.RecordUnchecked(day)
				summary.Unchecked = append(summary.Unchecked, types.UncheckedDay{View: view.Name, Day: day, Error: err.Error()})
				continue
			}
			if rep.Drifted() {
				metrics.DriftDaysTotal.WithLabelValues(view.Name).Inc()
				acc.RecordDrift(day)
			}
		}
	}
	return accs, nil
}

// alert fills the alert counters. Every configured suppressed view gets an
// entry, zero when it had no drift or was not discovered.
func (r *Reconciler) alert(accs []*types.ViewDriftAccumulator, summary *types.ReconciliationSummary) {
	counts := make(map[string]int, len(r.suppressed))
	for _, acc := range accs {
		if acc.Suppressed {
			counts[acc.View.Name] = acc.AlertDays
		}
	}

	seen := make(map[string]bool)
	add := func(view string) {
		if seen[view] {
			return
		}
		seen[view] = true
		summary.Alerts = append(summary.Alerts, types.Alert{View: view, Days: counts[view]})
		metrics.AlertDays.WithLabelValues(view).Set(float64(counts[view]))
	}
	for _, view := range r.suppressed {
		add(view)
	}
	for _, acc := range accs {
		if acc.Suppressed {
			add(acc.View.Name)
		}
	}
}

// repair backfills each drifted view once with all of its days
func (r *Reconciler) repair(ctx context.Context, accs []*types.ViewDriftAccumulator, summary *types.ReconciliationSummary, logger zerolog.Logger) {
	for _, acc := range accs {
		if !acc.NeedsBackfill() {
			continue
		}

		days := types.SortDays(acc.Days)
		err := r.executor.Backfill(ctx, acc.View, days)
		if err == nil {
			summary.RecordRepair(acc.View.Name, days)
			continue
		}

		failure := types.RepairFailure{View: acc.View.Name, Days: days, Error: err.Error()}
		var berr *backfill.BackfillError
		if errors.As(err, &berr) {
			failure.Phase = string(berr.Phase)
		}
		viewLog := log.ForView(logger, acc.View.Name)
		viewLog.Error().Err(err).Str("phase", failure.Phase).Msg("Backfill failed")
		summary.Failures = append(summary.Failures, failure)
	}
}

// finish sends notifications and journals the run. Neither can fail the run.
func (r *Reconciler) finish(ctx context.Context, summary *types.ReconciliationSummary, logger zerolog.Logger) {
	if r.notifier != nil {
		if failed := r.notifier.Deliver(ctx, r.phrases.Messages(summary)); failed > 0 {
			logger.Warn().Int("failed", failed).Msg("Some notifications were not delivered")
		}
	}

	if r.journal != nil {
		if err := r.journal.Record(summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run history")
		}
	}
}

// Views runs discovery alone
func (r *Reconciler) Views(ctx context.Context) ([]types.ViewDefinition, []*registry.DiscoveryError, error) {
	return r.registry.Discover(ctx)
}

// Check reports drift of one view on one day without repairing anything
func (r *Reconciler) Check(ctx context.Context, name string, day types.Day) (types.DriftReport, error) {
	views, _, err := r.registry.Discover(ctx)
	if err != nil {
		return types.DriftReport{}, err
	}
	for _, view := range views {
		if view.Name == name {
			return r.detector.Detect(ctx, view, day)
		}
	}
	return types.DriftReport{}, fmt.Errorf("%w: %s", ErrViewNotFound, name)
}

// Start runs a reconciliation immediately and then every interval until Stop.
// Runs never overlap: the next tick is only taken after a run returns.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(ctx, interval)
}

// Stop ends the loop started by Start and waits for a running cycle
func (r *Reconciler) Stop() {
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	<-r.doneCh
}

func (r *Reconciler) loop(ctx context.Context, interval time.Duration) {
	defer close(r.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Reconciliation run failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
