package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_runs_total",
			Help: "Total number of reconciliation runs by result",
		},
		[]string{"result"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viewsync_run_duration_seconds",
			Help:    "Reconciliation run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewsync_last_run_timestamp_seconds",
			Help: "Unix time the last reconciliation run finished",
		},
	)

	// Discovery metrics
	ViewsDiscovered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewsync_views_discovered",
			Help: "Number of views discovered in the last run",
		},
	)

	ViewsSkipped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewsync_views_skipped",
			Help: "Number of candidate views skipped at discovery in the last run",
		},
	)

	// Drift metrics
	CheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viewsync_check_duration_seconds",
			Help:    "Time taken to check one (view, day) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DriftDaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_drift_days_total",
			Help: "Total number of drifted days found by view",
		},
		[]string{"view"},
	)

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_query_errors_total",
			Help: "Total number of failed drift checks by view",
		},
		[]string{"view"},
	)

	AlertDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "viewsync_alert_days",
			Help: "Drifted days of backfill-suppressed views in the last run",
		},
		[]string{"view"},
	)

	// Backfill metrics
	BackfillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_backfills_total",
			Help: "Total number of backfills by view and result",
		},
		[]string{"view", "result"},
	)

	BackfillDaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_backfill_days_total",
			Help: "Total number of days re-inserted by view",
		},
		[]string{"view"},
	)

	BackfillDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewsync_backfill_phase_duration_seconds",
			Help:    "Backfill phase duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"phase"},
	)

	// Delivery metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_notifications_total",
			Help: "Total number of notifications by result",
		},
		[]string{"result"},
	)

	// Store metrics
	StoreUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewsync_store_up",
			Help: "Whether the analytical store answered the last ping (1 = up, 0 = down)",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(ViewsDiscovered)
	prometheus.MustRegister(ViewsSkipped)
	prometheus.MustRegister(CheckDuration)
	prometheus.MustRegister(DriftDaysTotal)
	prometheus.MustRegister(QueryErrorsTotal)
	prometheus.MustRegister(AlertDays)
	prometheus.MustRegister(BackfillsTotal)
	prometheus.MustRegister(BackfillDaysTotal)
	prometheus.MustRegister(BackfillDuration)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(StoreUp)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
