// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scheduling metrics
	JobsScheduled    *prometheus.CounterVec
	JobsDeduplicated *prometheus.CounterVec
	WalletRetries    prometheus.Counter
	DedupSetSize     *prometheus.GaugeVec
	PacingLagSeconds prometheus.Gauge
	SweepsStarted    prometheus.Counter

	// Handler metrics
	JobsProcessed *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Upstream API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
	APIPages    prometheus.Counter

	// Persistence metrics
	RecordsStored         *prometheus.CounterVec
	TransactionDuplicates prometheus.Counter
	DBQueryDuration       *prometheus.HistogramVec
	DBQueryErrors         *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tronscan_crawler"
	}

	return &Metrics{
		JobsScheduled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_scheduled_total",
			Help:      "Total number of jobs handed to the queue by kind",
		}, []string{"kind"}),
		JobsDeduplicated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_deduplicated_total",
			Help:      "Total number of jobs skipped because the target was already scheduled this pass",
		}, []string{"kind"}),
		WalletRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "wallet_retries_total",
			Help:      "Total number of wallet jobs re-scheduled after an empty or failed fetch",
		}),
		DedupSetSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "dedup_set_size",
			Help:      "Current number of addresses in each dedup set",
		}, []string{"set"}),
		PacingLagSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pacing_lag_seconds",
			Help:      "Distance between the last reserved pacing slot and now",
		}),
		SweepsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "sweeps_started_total",
			Help:      "Total number of periodic wallet sweeps started",
		}),

		JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "jobs_processed_total",
			Help:      "Total number of jobs processed by kind and status",
		}, []string{"kind", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "job_duration_seconds",
			Help:      "Job handler duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),

		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of upstream API requests by endpoint and outcome",
		}, []string{"endpoint", "status"}),
		APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "Upstream API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		APIPages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "transfer_pages_total",
			Help:      "Total number of transfer history pages fetched",
		}),

		RecordsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "records_stored_total",
			Help:      "Total number of records written by entity",
		}, []string{"entity"}),
		TransactionDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "transaction_duplicates_total",
			Help:      "Total number of transaction inserts discarded as duplicates",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
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

// RecordJobScheduled increments the scheduled jobs counter.
func RecordJobScheduled(kind string) {
	DefaultMetrics.JobsScheduled.WithLabelValues(kind).Inc()
}

// RecordJobDeduplicated increments the deduplicated jobs counter.
func RecordJobDeduplicated(kind string) {
	DefaultMetrics.JobsDeduplicated.WithLabelValues(kind).Inc()
}

// RecordWalletRetry increments the wallet retry counter.
func RecordWalletRetry() {
	DefaultMetrics.WalletRetries.Inc()
}

// UpdateDedupSetSize sets the size gauge for a dedup set.
func UpdateDedupSetSize(set string, size int) {
	DefaultMetrics.DedupSetSize.WithLabelValues(set).Set(float64(size))
}

// UpdatePacingLag sets the pacing lag gauge.
func UpdatePacingLag(seconds float64) {
	DefaultMetrics.PacingLagSeconds.Set(seconds)
}

// RecordSweepStarted increments the sweep counter.
func RecordSweepStarted() {
	DefaultMetrics.SweepsStarted.Inc()
}

// RecordJobProcessed records a handler run.
func RecordJobProcessed(kind string, durationSeconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.JobsProcessed.WithLabelValues(kind, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordAPIRequest records an upstream API request.
func RecordAPIRequest(endpoint, status string, seconds float64) {
	DefaultMetrics.APIRequests.WithLabelValues(endpoint, status).Inc()
	DefaultMetrics.APILatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIPage increments the transfer page counter.
func RecordAPIPage() {
	DefaultMetrics.APIPages.Inc()
}

// RecordStored increments the stored records counter for an entity.
func RecordStored(entity string) {
	DefaultMetrics.RecordsStored.WithLabelValues(entity).Inc()
}

// RecordTransactionDuplicate increments the duplicate transaction counter.
func RecordTransactionDuplicate() {
	DefaultMetrics.TransactionDuplicates.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
