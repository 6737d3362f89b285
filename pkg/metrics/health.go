package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health and readiness states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// overdueFactor is how many run intervals may pass without a finished run
// before the job counts as stuck
const overdueFactor = 2

// StoreState is the outcome of the last store probe
type StoreState struct {
	Reachable bool      `json:"reachable"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// RunState describes the most recent finished run
type RunState struct {
	Result     string    `json:"result,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	Overdue    bool      `json:"overdue"`
}

// HealthStatus is the body of /health and /ready
type HealthStatus struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Store     StoreState `json:"store"`
	LastRun   RunState   `json:"last_run"`
	Version   string     `json:"version,omitempty"`
	Uptime    string     `json:"uptime,omitempty"`
}

type healthState struct {
	mu       sync.RWMutex
	store    StoreState
	probed   bool
	run      RunState
	interval time.Duration
	started  time.Time
	version  string
	now      func() time.Time
}

var health = newHealthState()

func newHealthState() *healthState {
	return &healthState{started: time.Now(), now: time.Now}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// SetRunInterval sets how often runs are expected to finish. Zero disables
// the overdue check, which is the case for one-shot commands.
func SetRunInterval(interval time.Duration) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.interval = interval
}

// ReportStore records the outcome of a store probe
func ReportStore(err error) {
	health.mu.Lock()
	defer health.mu.Unlock()

	health.probed = true
	health.store = StoreState{Reachable: err == nil, CheckedAt: health.now()}
	if err != nil {
		health.store.Error = err.Error()
		StoreUp.Set(0)
		return
	}
	StoreUp.Set(1)
}

// RecordRun counts a finished run by result and keeps it as the last run
func RecordRun(result string, finished time.Time) {
	RunsTotal.WithLabelValues(result).Inc()

	health.mu.Lock()
	defer health.mu.Unlock()
	health.run = RunState{Result: result, FinishedAt: finished}
}

// snapshot returns the current state with the overdue flag evaluated at now
func (h *healthState) snapshot() (HealthStatus, bool) {
	now := h.now()
	run := h.run

	if h.interval > 0 {
		since := run.FinishedAt
		if since.IsZero() {
			since = h.started
		}
		run.Overdue = now.Sub(since) > overdueFactor*h.interval
	}

	return HealthStatus{
		Timestamp: now,
		Store:     h.store,
		LastRun:   run,
		Version:   h.version,
		Uptime:    now.Sub(h.started).Round(time.Second).String(),
	}, h.probed
}

// GetHealth reports unhealthy while the store is unreachable and degraded
// when the last run failed or no run finished for too long
func GetHealth() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()

	status, probed := health.snapshot()
	switch {
	case probed && !status.Store.Reachable:
		status.Status = StatusUnhealthy
		status.Message = "store unreachable: " + status.Store.Error
	case status.LastRun.Result == "failed":
		status.Status = StatusDegraded
		status.Message = "last run failed"
	case status.LastRun.Overdue:
		status.Status = StatusDegraded
		status.Message = "no run finished within " + (overdueFactor * health.interval).String()
	default:
		status.Status = StatusHealthy
	}
	return status
}

// GetReadiness reports ready once the store answered its last probe and runs
// are finishing on schedule
func GetReadiness() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()

	status, probed := health.snapshot()
	status.Status = StatusNotReady
	switch {
	case !probed:
		status.Message = "waiting for the first store probe"
	case !status.Store.Reachable:
		status.Message = "store unreachable: " + status.Store.Error
	case status.LastRun.Overdue:
		status.Message = "no run finished within " + (overdueFactor * health.interval).String()
	default:
		status.Status = StatusReady
	}
	return status
}

// HealthHandler returns an HTTP handler for the /health endpoint
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetHealth()
		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, status)
	}
}

// ReadyHandler returns an HTTP handler for the /ready endpoint
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetReadiness()
		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, status)
	}
}

// LivenessHandler answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
