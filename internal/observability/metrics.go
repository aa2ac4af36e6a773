package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "draftlock"

// Metrics tracks usage accounting and live-estimate outcomes.
//
// Metrics:
//   - draftlock_estimates_total: live estimates by outcome (completed, failed, superseded)
//   - draftlock_transforms_total: transformation runs by model and outcome
//   - draftlock_tokens_total: recorded tokens by model and direction (input, output)
//   - draftlock_cost_total: recorded cost by model and currency
//
// Cost is exported as float64 for dashboards only; the ledger keeps exact values.
type Metrics struct {
	registry   *prometheus.Registry
	estimates  *prometheus.CounterVec
	transforms *prometheus.CounterVec
	tokens     *prometheus.CounterVec
	cost       *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		estimates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "estimates_total",
				Help:      "Live token estimates by outcome",
			},
			[]string{"outcome"},
		),
		transforms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transforms_total",
				Help:      "Transformation runs by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tokens_total",
				Help:      "Tokens recorded in the usage ledger",
			},
			[]string{"model", "direction"},
		),
		cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cost_total",
				Help:      "Cost recorded in the usage ledger",
			},
			[]string{"model", "currency"},
		),
	}

	m.registry.MustRegister(m.estimates, m.transforms, m.tokens, m.cost)

	return m
}

// EstimateOutcome counts one live-estimate outcome.
func (m *Metrics) EstimateOutcome(outcome string) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(outcome).Inc()
}

// TransformOutcome counts one transformation run.
func (m *Metrics) TransformOutcome(model, outcome string) {
	if m == nil {
		return
	}
	m.transforms.WithLabelValues(model, outcome).Inc()
}

// RecordUsage adds a ledger entry's tokens and cost.
func (m *Metrics) RecordUsage(model, currency string, inputTokens, outputTokens int, cost float64) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.tokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	m.cost.WithLabelValues(model, currency).Add(cost)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
