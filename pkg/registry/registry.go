package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
)

// DiscoveryError explains why a candidate view was left out of a run
type DiscoveryError struct {
	View   string
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("view %s skipped: %s: %v", e.View, e.Reason, e.Err)
	}
	return fmt.Sprintf("view %s skipped: %s", e.View, e.Reason)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Config controls which tables become reconciliation candidates
type Config struct {
	HiddenPrefixes []string
	Include        []string // when non-empty, only these views
	Exclude        []string
	Suppressed     []string // views whose drift is alerted on, never backfilled
	Rewrites       []RewriteRule
}

// Registry discovers view definitions in the store
type Registry struct {
	store  store.Store
	cfg    Config
	logger zerolog.Logger
}

// NewRegistry creates a registry. Nil rewrites fall back to DefaultRewrites.
func NewRegistry(s store.Store, cfg Config) *Registry {
	if cfg.Rewrites == nil {
		cfg.Rewrites = DefaultRewrites()
	}
	return &Registry{
		store:  s,
		cfg:    cfg,
		logger: log.WithComponent("registry"),
	}
}

// Discover lists reconcilable views. Only a failure to list tables is
// returned as an error; per-view problems come back as DiscoveryErrors.
func (r *Registry) Discover(ctx context.Context) ([]types.ViewDefinition, []*DiscoveryError, error) {
	tables, err := r.store.ListTables(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var (
		views   []types.ViewDefinition
		skipped []*DiscoveryError
	)

	for _, table := range tables {
		if r.hidden(table) || !r.selected(table) {
			continue
		}

		view, ok, derr := r.define(ctx, table)
		if derr != nil {
			r.logger.Warn().Err(derr.Err).Str("view", table).Msg("View skipped: " + derr.Reason)
			skipped = append(skipped, derr)
			continue
		}
		if !ok {
			continue
		}

		r.logger.Debug().
			Str("view", view.Name).
			Str("predicate", view.Predicate).
			Int("columns", len(view.Projection)).
			Bool("suppressed", view.Suppressed).
			Msg("View discovered")
		views = append(views, view)
	}

	r.logger.Info().Int("views", len(views)).Int("skipped", len(skipped)).Msg("Discovery finished")
	return views, skipped, nil
}

// define builds the definition of one table; ok is false for tables that are
// not candidates at all
func (r *Registry) define(ctx context.Context, table string) (types.ViewDefinition, bool, *DiscoveryError) {
	stmt, err := r.store.CreateStatement(ctx, table)
	if err != nil {
		return types.ViewDefinition{}, false, &DiscoveryError{View: table, Reason: "creation statement unavailable", Err: err}
	}

	parsed := ParseCreateStatement(stmt)
	if !parsed.Candidate() {
		return types.ViewDefinition{}, false, nil
	}
	if parsed.Predicate == "" {
		return types.ViewDefinition{}, false, &DiscoveryError{View: table, Reason: "no predicate in creation statement"}
	}

	columns, err := r.store.DescribeColumns(ctx, table)
	if err != nil {
		return types.ViewDefinition{}, false, &DiscoveryError{View: table, Reason: "columns unavailable", Err: err}
	}

	return types.ViewDefinition{
		Name:       table,
		Predicate:  parsed.Predicate,
		Projection: BuildProjection(columns, r.cfg.Rewrites),
		Suppressed: contains(r.cfg.Suppressed, table),
	}, true, nil
}

func (r *Registry) hidden(table string) bool {
	for _, prefix := range r.cfg.HiddenPrefixes {
		if prefix != "" && strings.HasPrefix(table, prefix) {
			return true
		}
	}
	return false
}

func (r *Registry) selected(table string) bool {
	if len(r.cfg.Include) > 0 && !contains(r.cfg.Include, table) {
		return false
	}
	return !contains(r.cfg.Exclude, table)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
