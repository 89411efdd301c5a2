package reconcile

import "github.com/CommonsHub/token-bot/observability"

// Metrics exposes Prometheus collectors for engine instrumentation.
type Metrics = observability.ReconcilerMetrics

// NewMetrics returns the lazily initialised metrics registry.
func NewMetrics() *Metrics { return observability.Reconciler() }
