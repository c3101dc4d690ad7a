// Package metrics exposes operation counters and entity gauges through a
// private Prometheus registry. A CLI process is short lived, so the registry
// is written to a node_exporter textfile instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/resource-booker/internal/persistence"
)

const namespace = "booker"

// Registry records service observations and entity counts.
type Registry struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	entities   *prometheus.GaugeVec
}

// NewRegistry builds a registry with every collector registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"service", "operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"service", "operation"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Records per collection after the last observation.",
		}, []string{"collection"}),
	}
	r.registry.MustRegister(r.operations, r.durations, r.entities)
	return r
}

// Observe implements application.MetricsRecorder.
func (r *Registry) Observe(service, operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(service, operation, outcome).Inc()
	r.durations.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}

// ObserveState sets the entity gauges from state.
func (r *Registry) ObserveState(state persistence.State) {
	if r == nil {
		return
	}
	r.entities.WithLabelValues(string(persistence.CollectionUsers)).Set(float64(len(state.Users)))
	r.entities.WithLabelValues(string(persistence.CollectionResources)).Set(float64(len(state.Resources)))
	r.entities.WithLabelValues(string(persistence.CollectionBookings)).Set(float64(len(state.Bookings)))
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
