package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/viewsync/pkg/history"
	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/types"
	"github.com/rs/zerolog"
)

// defaultRunLimit caps /runs when no limit is given
const defaultRunLimit = 20

// RunHistory reads the run journal
type RunHistory interface {
	// List returns recorded runs, newest first
	List(limit int) ([]*types.ReconciliationSummary, error)
	// Get returns one run, or an error wrapping history.ErrNotFound
	Get(runID string) (*types.ReconciliationSummary, error)
	// Views returns the last repair of every view
	Views() ([]history.ViewRecord, error)
}

// StatusServer exposes health, readiness, metrics and the run journal over
// HTTP
type StatusServer struct {
	runs   RunHistory
	mux    *http.ServeMux
	server *http.Server
	logger zerolog.Logger
}

// NewStatusServer creates the status server. runs may be nil when no
// history journal is configured.
func NewStatusServer(runs RunHistory) *StatusServer {
	mux := http.NewServeMux()
	s := &StatusServer{
		runs:   runs,
		mux:    mux,
		logger: log.WithComponent("api"),
	}

	mux.HandleFunc("/health", getOnly(metrics.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(metrics.ReadyHandler()))
	mux.HandleFunc("/live", getOnly(metrics.LivenessHandler()))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/runs", getOnly(s.runsHandler))
	mux.HandleFunc("/runs/last", getOnly(s.lastRunHandler))
	mux.HandleFunc("/runs/{id}", getOnly(s.runHandler))
	mux.HandleFunc("/views", getOnly(s.viewsHandler))

	return s
}

// Start serves on addr until Shutdown
func (s *StatusServer) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Status server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *StatusServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for embedding in other servers
func (s *StatusServer) Handler() http.Handler {
	return s.mux
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// runsHandler implements /runs?limit=N
func (s *StatusServer) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, ok := s.list(w, limit)
	if !ok {
		return
	}
	if runs == nil {
		runs = []*types.ReconciliationSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// lastRunHandler implements /runs/last
func (s *StatusServer) lastRunHandler(w http.ResponseWriter, r *http.Request) {
	runs, ok := s.list(w, 1)
	if !ok {
		return
	}
	if len(runs) == 0 {
		http.Error(w, "no runs recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, runs[0])
}

// runHandler implements /runs/{id}
func (s *StatusServer) runHandler(w http.ResponseWriter, r *http.Request) {
	if !s.enabled(w) {
		return
	}
	run, err := s.runs.Get(r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// viewsHandler implements /views, the last repair of every view
func (s *StatusServer) viewsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.enabled(w) {
		return
	}
	records, err := s.runs.Views()
	if err != nil {
		s.historyError(w, err)
		return
	}
	if records == nil {
		records = []history.ViewRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *StatusServer) list(w http.ResponseWriter, limit int) ([]*types.ReconciliationSummary, bool) {
	if !s.enabled(w) {
		return nil, false
	}
	runs, err := s.runs.List(limit)
	if err != nil {
		s.historyError(w, err)
		return nil, false
	}
	return runs, true
}

func (s *StatusServer) enabled(w http.ResponseWriter) bool {
	if s.runs == nil {
		http.Error(w, "run history is disabled", http.StatusNotFound)
		return false
	}
	return true
}

func (s *StatusServer) historyError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("Failed to read run history")
	http.Error(w, "failed to read run history", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
