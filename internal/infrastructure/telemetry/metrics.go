// Package telemetry provides Prometheus instrumentation for the ledger.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics holds the ledger's business metrics. A nil *LedgerMetrics is
// valid and records nothing, so instrumentation stays optional for embedders.
type LedgerMetrics struct {
	appends   *prometheus.CounterVec
	conflicts prometheus.Counter
	retries   prometheus.Counter
	transfers prometheus.Counter
	duration  prometheus.Histogram
}

// NewLedgerMetrics creates and registers the ledger collectors on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbook",
			Subsystem: "ledger",
			Name:      "appends_total",
			Help:      "Ledger entries appended, by movement type.",
		}, []string{"movement_type"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Subsystem: "ledger",
			Name:      "conflicts_total",
			Help:      "Concurrency conflicts surfaced after retries were exhausted.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Subsystem: "ledger",
			Name:      "conflict_retries_total",
			Help:      "Transient conflicts that were retried.",
		}),
		transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Completed two-leg warehouse transfers.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stockbook",
			Subsystem: "ledger",
			Name:      "append_duration_seconds",
			Help:      "Wall time of a movement append including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.appends, m.conflicts, m.retries, m.transfers, m.duration)
	return m
}

// ObserveAppend records a successful append.
func (m *LedgerMetrics) ObserveAppend(movementType string, took time.Duration) {
	if m == nil {
		return
	}
	m.appends.WithLabelValues(movementType).Inc()
	m.duration.Observe(took.Seconds())
}

// ObserveRetry records a transient conflict that is being retried.
func (m *LedgerMetrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveConflict records a conflict surfaced to the caller.
func (m *LedgerMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// ObserveTransfer records a completed transfer.
func (m *LedgerMetrics) ObserveTransfer() {
	if m == nil {
		return
	}
	m.transfers.Inc()
}
