package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics counts subscription lifecycle operations by outcome.
type LifecycleMetrics struct {
	operations *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle counters on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_operations_total",
		Help:      "Subscription lifecycle operations by name and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &LifecycleMetrics{operations: operations}
}

// Observe records one operation; err decides the outcome label.
func (m *LifecycleMetrics) Observe(operation string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}
