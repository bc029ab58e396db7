package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "social_push"

// Metrics records notification outcomes.
type Metrics struct {
	registry *prometheus.Registry

	Outcomes      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	IngressErrors *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Change events handled, by entry point and outcome.",
		}, []string{"trigger", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Time spent deciding and delivering one change event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		IngressErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_errors_total",
			Help:      "Change events that could not be decoded, by transport.",
		}, []string{"transport"}),
	}

	m.registry.MustRegister(
		m.Outcomes,
		m.Duration,
		m.IngressErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveOutcome records one entry point invocation. Safe on a nil receiver.
func (m *Metrics) ObserveOutcome(trigger, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(trigger, outcome).Inc()
	m.Duration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// IngressError records an undecodable event. Safe on a nil receiver.
func (m *Metrics) IngressError(transport string) {
	if m == nil {
		return
	}
	m.IngressErrors.WithLabelValues(transport).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
