// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Batch metrics
	WalletsProcessed *prometheus.CounterVec
	AnomaliesTotal   *prometheus.CounterVec
	BatchRunsTotal   prometheus.Counter
	BatchDuration    prometheus.Histogram

	// Replay metrics
	WalletReplayDuration prometheus.Histogram
	EventsNormalized     prometheus.Counter
	PositionsWritten     prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pnl_lab"
	}

	return &Metrics{
		WalletsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "wallets_processed_total",
			Help:      "Total number of wallets processed by final status",
		}, []string{"status"}),
		AnomaliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "anomalies_total",
			Help:      "Total number of data anomalies by category",
		}, []string{"category"}),
		BatchRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of batch runs",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		WalletReplayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "wallet_duration_seconds",
			Help:      "Single-wallet replay duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "events_normalized_total",
			Help:      "Total number of ledger events produced by normalization",
		}),
		PositionsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "positions_written_total",
			Help:      "Total number of position records persisted",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWalletProcessed increments the wallets processed counter.
func RecordWalletProcessed(status string) {
	DefaultMetrics.WalletsProcessed.WithLabelValues(status).Inc()
}

// RecordAnomalies adds n occurrences of an anomaly category.
func RecordAnomalies(category string, n int) {
	DefaultMetrics.AnomaliesTotal.WithLabelValues(category).Add(float64(n))
}

// RecordBatchRun records one finished batch run.
func RecordBatchRun(durationSeconds float64) {
	DefaultMetrics.BatchRunsTotal.Inc()
	DefaultMetrics.BatchDuration.Observe(durationSeconds)
}

// RecordWalletReplayDuration records a single-wallet replay duration.
func RecordWalletReplayDuration(seconds float64) {
	DefaultMetrics.WalletReplayDuration.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
