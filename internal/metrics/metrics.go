// Package metrics provides Prometheus metrics for the rule engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	ConfigChangesTotal *prometheus.CounterVec
	ActiveTenants      prometheus.Gauge
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_decisions_total",
				Help: "Rule decisions by kind, module and outcome.",
			},
			[]string{"kind", "module", "outcome"},
		),
		ConfigChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_config_changes_total",
				Help: "Tenant config snapshot swaps by kind.",
			},
			[]string{"kind"},
		),
		ActiveTenants: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "safety_config_tenants",
				Help: "Number of tenants with a published config snapshot.",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safety_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_errors_total",
				Help: "Errors by component and type.",
			},
			[]string{"component", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.DecisionsTotal)
	reg.MustRegister(m.ConfigChangesTotal)
	reg.MustRegister(m.ActiveTenants)
	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry exposes the underlying registry (for tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one rule decision.
func (m *Metrics) RecordDecision(kind, module, outcome string) {
	m.DecisionsTotal.WithLabelValues(kind, module, outcome).Inc()
}

// RecordConfigChange counts one snapshot swap.
func (m *Metrics) RecordConfigChange(kind string) {
	m.ConfigChangesTotal.WithLabelValues(kind).Inc()
}

// SetActiveTenants sets the tenant gauge.
func (m *Metrics) SetActiveTenants(n int) {
	m.ActiveTenants.Set(float64(n))
}

// RecordRequest counts one HTTP request.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// ObserveDuration records request duration.
func (m *Metrics) ObserveDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, errType string) {
	m.ErrorsTotal.WithLabelValues(component, errType).Inc()
}
