// Package metrics exposes Prometheus collectors for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the pipeline updates. A nil *Metrics is
// valid and records nothing, so tests can run without a registry.
type Metrics struct {
	BatchesTotal  *prometheus.CounterVec
	RowsTotal     *prometheus.CounterVec
	RowErrors     *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
}

// Batch outcomes for BatchesTotal.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
)

// New creates and registers the pipeline collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "batches_total",
			Help:      "Import batches by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "rows_total",
			Help:      "Processed rows by entity kind and result.",
		}, []string{"kind", "result"}),
		RowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "row_errors_total",
			Help:      "Row-scoped errors by entity kind and error kind.",
		}, []string{"kind", "error_kind"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "End-to-end batch import duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(m.BatchesTotal, m.RowsTotal, m.RowErrors, m.BatchDuration)
	return m
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeCompleted {
		m.BatchDuration.WithLabelValues(kind).Observe(seconds)
	}
}

// ObserveRow records one processed row.
func (m *Metrics) ObserveRow(kind string, success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	m.RowsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveRowError records one row-scoped error.
func (m *Metrics) ObserveRowError(kind, errorKind string) {
	if m == nil {
		return
	}
	m.RowErrors.WithLabelValues(kind, errorKind).Inc()
}
