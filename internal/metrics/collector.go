// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates council and completion metrics.
type Collector struct {
	// council run metrics
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	personaOutcomes *prometheus.CounterVec

	// completion metrics
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on reg. A nil reg uses
// the default registerer; tests pass a fresh registry to avoid duplicate
// registration panics.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "council_runs_total",
			Help:      "Total number of council runs by final status",
		},
		[]string{"status"},
	)

	c.runDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "council_run_duration_seconds",
			Help:      "Council run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	c.personaOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "council_persona_outcomes_total",
			Help:      "Per-persona branch outcomes",
		},
		[]string{"persona", "outcome"},
	)

	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Tokens consumed by completion requests",
		},
		[]string{"provider", "type"},
	)

	return c
}

// RecordRun records one finished council run.
func (c *Collector) RecordRun(status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordPersonaOutcome records one fan-out branch result.
func (c *Collector) RecordPersonaOutcome(persona string, succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	c.personaOutcomes.WithLabelValues(persona, outcome).Inc()
}

// RecordLLMRequest records one completion call.
func (c *Collector) RecordLLMRequest(provider, status string, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(provider, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokens records token consumption for a completion call.
func (c *Collector) RecordTokens(provider string, promptTokens, completionTokens int) {
	c.llmTokensUsed.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}
