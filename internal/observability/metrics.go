// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing, so components can take an optional handle.
type Metrics struct {
	// Intake metrics
	RowsRead     prometheus.Counter
	RowsFiltered prometheus.Counter
	RowErrors    prometheus.Counter

	// Normalization metrics
	ExecutionsNormalized prometheus.Counter
	QualityFlags         prometheus.Counter
	LookupMisses         *prometheus.CounterVec

	// Reconciliation metrics. Fallbacks and failures are the documented
	// degraded paths and must stay visible.
	HistoryFetchFallbacks prometheus.Counter
	HistoryFetchFailures  prometheus.Counter
	HistoryReplayed       prometheus.Counter

	// Lifecycle metrics
	PositionsOpened prometheus.Counter
	PositionsClosed prometheus.Counter

	// Persistence metrics
	ExecutionsWritten prometheus.Counter
	ExecutionsFailed  prometheus.Counter

	// Batch metrics
	BatchRunsTotal *prometheus.CounterVec
	BatchDuration  prometheus.Histogram

	// Side-channel metrics
	ArchiveFailures prometheus.Counter
	NotifyFailures  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradeledger"
	}

	return &Metrics{
		RowsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "rows_read_total",
			Help:      "Total number of spreadsheet rows read",
		}),
		RowsFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "rows_filtered_total",
			Help:      "Total number of rows dropped by the order-status filter",
		}),
		RowErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "row_errors_total",
			Help:      "Total number of rows excluded by validation errors",
		}),
		ExecutionsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "executions_total",
			Help:      "Total number of rows normalized into executions",
		}),
		QualityFlags: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "quality_flags_total",
			Help:      "Total number of non-fatal data-quality flags recorded",
		}),
		LookupMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "lookup_misses_total",
			Help:      "Total number of reference-table lookup misses",
		}, []string{"table"}),
		HistoryFetchFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "history_fetch_fallbacks_total",
			Help:      "Total number of scoped history queries that fell back to a full user query",
		}),
		HistoryFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "history_fetch_failures_total",
			Help:      "Total number of batches processed off empty history after a query failure",
		}),
		HistoryReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "history_replayed_total",
			Help:      "Total number of historical executions replayed to seed tracker state",
		}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_opened_total",
			Help:      "Total number of executions classified as opening a position",
		}),
		PositionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_closed_total",
			Help:      "Total number of executions classified as closing a position",
		}),
		ExecutionsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "executions_written_total",
			Help:      "Total number of executions written to the store",
		}),
		ExecutionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "executions_failed_total",
			Help:      "Total number of executions that failed to write",
		}),
		BatchRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batch_runs_total",
			Help:      "Total number of batch runs by outcome",
		}, []string{"status"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of batch processing",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ArchiveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "failures_total",
			Help:      "Total number of non-fatal archival failures",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of non-fatal notification failures",
		}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Nil-safe increment helpers. Components hold a *Metrics that may be nil in
// tests and dry runs.

func (m *Metrics) IncRowsRead(n int) {
	if m != nil {
		m.RowsRead.Add(float64(n))
	}
}

func (m *Metrics) IncRowsFiltered(n int) {
	if m != nil {
		m.RowsFiltered.Add(float64(n))
	}
}

func (m *Metrics) IncRowErrors(n int) {
	if m != nil {
		m.RowErrors.Add(float64(n))
	}
}

func (m *Metrics) IncExecutionsNormalized(n int) {
	if m != nil {
		m.ExecutionsNormalized.Add(float64(n))
	}
}

func (m *Metrics) IncQualityFlags(n int) {
	if m != nil {
		m.QualityFlags.Add(float64(n))
	}
}

func (m *Metrics) IncLookupMiss(table string) {
	if m != nil {
		m.LookupMisses.WithLabelValues(table).Inc()
	}
}

func (m *Metrics) IncHistoryFetchFallback() {
	if m != nil {
		m.HistoryFetchFallbacks.Inc()
	}
}

func (m *Metrics) IncHistoryFetchFailure() {
	if m != nil {
		m.HistoryFetchFailures.Inc()
	}
}

func (m *Metrics) IncHistoryReplayed(n int) {
	if m != nil {
		m.HistoryReplayed.Add(float64(n))
	}
}

func (m *Metrics) IncPositionsOpened() {
	if m != nil {
		m.PositionsOpened.Inc()
	}
}

func (m *Metrics) IncPositionsClosed() {
	if m != nil {
		m.PositionsClosed.Inc()
	}
}

func (m *Metrics) IncExecutionsWritten(n int) {
	if m != nil {
		m.ExecutionsWritten.Add(float64(n))
	}
}

func (m *Metrics) IncExecutionsFailed(n int) {
	if m != nil {
		m.ExecutionsFailed.Add(float64(n))
	}
}

func (m *Metrics) RecordBatchRun(status string, seconds float64) {
	if m != nil {
		m.BatchRunsTotal.WithLabelValues(status).Inc()
		m.BatchDuration.Observe(seconds)
	}
}

func (m *Metrics) IncArchiveFailure() {
	if m != nil {
		m.ArchiveFailures.Inc()
	}
}

func (m *Metrics) IncNotifyFailure() {
	if m != nil {
		m.NotifyFailures.Inc()
	}
}
