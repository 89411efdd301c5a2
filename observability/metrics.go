// Package observability holds the Prometheus collectors shared by the bot
// daemon and the reconciliation run.
package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcilerMetrics exposes Prometheus collectors for the role-balance
// reconciliation engine.
type ReconcilerMetrics struct {
	operations   *prometheus.CounterVec
	skips        *prometheus.CounterVec
	revocations  *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

var (
	reconcilerOnce sync.Once
	reconcilerReg  *ReconcilerMetrics
)

// Reconciler returns the lazily-initialised reconciliation metrics registry.
func Reconciler() *ReconcilerMetrics {
	reconcilerOnce.Do(func() {
		reconcilerReg = &ReconcilerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenbot",
				Subsystem: "reconcile",
				Name:      "operations_total",
				Help:      "Ledger operations segmented by kind and result.",
			}, []string{"kind", "result"}),
			skips: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenbot",
				Subsystem: "reconcile",
				Name:      "skips_total",
				Help:      "Members skipped during a run segmented by reason.",
			}, []string{"reason"}),
			revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenbot",
				Subsystem: "reconcile",
				Name:      "revocations_total",
				Help:      "Role revocation attempts segmented by result.",
			}, []string{"result"}),
			sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenbot",
				Subsystem: "notify",
				Name:      "sink_failures_total",
				Help:      "Notification deliveries that failed, per sink.",
			}, []string{"sink"}),
			runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "tokenbot",
				Subsystem: "reconcile",
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of complete reconciliation runs.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
		}
		prometheus.MustRegister(
			reconcilerReg.operations,
			reconcilerReg.skips,
			reconcilerReg.revocations,
			reconcilerReg.sinkFailures,
			reconcilerReg.runDuration,
		)
	})
	return reconcilerReg
}

// RecordOperation counts one ledger operation outcome.
func (m *ReconcilerMetrics) RecordOperation(kind, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// RecordSkip counts one skipped member.
func (m *ReconcilerMetrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(normalizeLabel(reason)).Inc()
}

// RecordRevocation counts one revocation attempt outcome.
func (m *ReconcilerMetrics) RecordRevocation(result string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(normalizeLabel(result)).Inc()
}

// RecordSinkFailure counts one failed notification delivery.
func (m *ReconcilerMetrics) RecordSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(normalizeLabel(sink)).Inc()
}

// ObserveRunDuration records the wall-clock duration of one run.
func (m *ReconcilerMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
