package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetHealth installs a fresh state whose clock reads the returned pointer
func resetHealth() *time.Time {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	health = newHealthState()
	health.started = now
	health.now = func() time.Time { return now }
	return &now
}

func TestReportStore(t *testing.T) {
	resetHealth()

	ReportStore(nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(StoreUp))
	assert.True(t, GetHealth().Store.Reachable)

	ReportStore(errors.New("connection refused"))
	assert.Equal(t, float64(0), testutil.ToFloat64(StoreUp))

	h := GetHealth()
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, "connection refused", h.Store.Error)
	assert.Contains(t, h.Message, "store unreachable")
}

func TestRecordRun(t *testing.T) {
	resetHealth()
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("partial"))

	finished := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	RecordRun("partial", finished)

	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("partial")))
	last := GetHealth().LastRun
	assert.Equal(t, "partial", last.Result)
	assert.Equal(t, finished, last.FinishedAt)
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(now *time.Time)
		want    string
		message string
	}{
		{
			name:  "store up, no runs yet",
			setup: func(now *time.Time) { ReportStore(nil) },
			want:  StatusHealthy,
		},
		{
			name: "last run failed",
			setup: func(now *time.Time) {
				ReportStore(nil)
				RecordRun("failed", *now)
			},
			want:    StatusDegraded,
			message: "last run failed",
		},
		{
			name: "runs overdue",
			setup: func(now *time.Time) {
				SetRunInterval(time.Hour)
				ReportStore(nil)
				RecordRun("success", *now)
				*now = now.Add(3 * time.Hour)
			},
			want:    StatusDegraded,
			message: "no run finished within 2h0m0s",
		},
		{
			name: "store down outranks run state",
			setup: func(now *time.Time) {
				RecordRun("failed", *now)
				ReportStore(errors.New("timeout"))
			},
			want:    StatusUnhealthy,
			message: "store unreachable: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := resetHealth()
			tt.setup(now)

			h := GetHealth()
			assert.Equal(t, tt.want, h.Status)
			assert.Equal(t, tt.message, h.Message)
		})
	}
}

func TestGetReadiness(t *testing.T) {
	tests := []struct {
		name  string
		setup func(now *time.Time)
		want  string
	}{
		{
			name:  "store not probed",
			setup: func(now *time.Time) {},
			want:  StatusNotReady,
		},
		{
			name:  "store reachable",
			setup: func(now *time.Time) { ReportStore(nil) },
			want:  StatusReady,
		},
		{
			name:  "store down",
			setup: func(now *time.Time) { ReportStore(errors.New("connection refused")) },
			want:  StatusNotReady,
		},
		{
			name: "failed run is still ready",
			setup: func(now *time.Time) {
				ReportStore(nil)
				RecordRun("failed", *now)
			},
			want: StatusReady,
		},
		{
			name: "first run still within two intervals",
			setup: func(now *time.Time) {
				SetRunInterval(time.Hour)
				ReportStore(nil)
				*now = now.Add(90 * time.Minute)
			},
			want: StatusReady,
		},
		{
			name: "no run finished for two intervals",
			setup: func(now *time.Time) {
				SetRunInterval(time.Hour)
				ReportStore(nil)
				*now = now.Add(2*time.Hour + time.Second)
			},
			want: StatusNotReady,
		},
		{
			name: "overdue check off for one-shot runs",
			setup: func(now *time.Time) {
				ReportStore(nil)
				*now = now.Add(72 * time.Hour)
			},
			want: StatusReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := resetHealth()
			tt.setup(now)

			readiness := GetReadiness()
			assert.Equal(t, tt.want, readiness.Status)
			if tt.want != StatusReady {
				assert.NotEmpty(t, readiness.Message)
			}
		})
	}
}

func TestHealthHandlers(t *testing.T) {
	resetHealth()
	SetVersion("test")
	ReportStore(nil)

	w := httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "test", status.Version)
	assert.True(t, status.Store.Reachable)

	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	ReportStore(errors.New("down"))

	w = httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}
