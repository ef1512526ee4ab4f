// Package metrics exposes the validation engine's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for AlphaGate.
type Registry struct {
	reg *prometheus.Registry

	// Validation pipeline
	GateDuration     *prometheus.HistogramVec
	GateResults      *prometheus.CounterVec
	ValidationsTotal prometheus.Counter

	// Production monitoring
	ActiveIndicators prometheus.Gauge
	Retirements      *prometheus.CounterVec
	StorageErrors    prometheus.Counter
}

// NewRegistry creates a self-contained metrics registry; nothing is
// registered globally so tests can build as many as they like.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		GateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphagate_gate_duration_seconds",
				Help:    "Duration of each validation gate in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"gate"},
		),

		GateResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphagate_gate_results_total",
				Help: "Gate evaluations by gate name and pass/fail result",
			},
			[]string{"gate", "result"},
		),

		ValidationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alphagate_validations_total",
				Help: "Total validation pipeline runs",
			},
		),

		ActiveIndicators: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "alphagate_active_indicators",
				Help: "Number of indicators currently in production",
			},
		),

		Retirements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphagate_retirements_total",
				Help: "Retirement recommendations by reason",
			},
			[]string{"reason"},
		),

		StorageErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alphagate_storage_errors_total",
				Help: "Storage reads treated as missing history by the monitor",
			},
		),
	}

	r.reg.MustRegister(
		r.GateDuration, r.GateResults, r.ValidationsTotal,
		r.ActiveIndicators, r.Retirements, r.StorageErrors,
	)
	return r
}

// Handler serves this registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
