package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the SP ingestion worker

var (
	// Source fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfsp_fetches_total",
			Help: "Total number of SP file download attempts",
		},
		[]string{"country", "type", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfsp_fetch_duration_seconds",
			Help:    "Duration of SP file downloads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"country"},
	)

	// Storage metrics
	StorageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfsp_storage_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfsp_storage_operation_duration_seconds",
			Help:    "Duration of object storage operations in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// Run metrics
	KeysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfsp_keys_total",
			Help: "Number of artifact keys processed by terminal state",
		},
		[]string{"state"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bfsp_run_duration_seconds",
			Help:    "Duration of full ingestion runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfsp_rows_ingested_total",
			Help: "Total number of SP rows written to storage",
		},
		[]string{"country", "type"},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bfsp_last_successful_run_timestamp",
			Help: "Timestamp of the last run with no failed keys",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfsp_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "kind"},
	)
)

// RecordFetch records one download attempt outcome
func RecordFetch(country, marketType, status string, duration float64) {
	FetchesTotal.WithLabelValues(country, marketType, status).Inc()
	FetchDuration.WithLabelValues(country).Observe(duration)
}

// RecordStorageOp records an object storage operation
func RecordStorageOp(operation, status string, duration float64) {
	StorageOpsTotal.WithLabelValues(operation, status).Inc()
	StorageOpDuration.WithLabelValues(operation).Observe(duration)
}

// RecordKey records a key reaching a terminal state
func RecordKey(state string) {
	KeysTotal.WithLabelValues(state).Inc()
}

// RecordRun records a completed run
func RecordRun(duration float64, failed int) {
	RunDuration.Observe(duration)
	if failed == 0 {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordRows records rows written for a key
func RecordRows(country, marketType string, rows int) {
	RowsIngested.WithLabelValues(country, marketType).Add(float64(rows))
}

// RecordError records an error by component and kind
func RecordError(component, kind string) {
	ErrorsTotal.WithLabelValues(component, kind).Inc()
}
