// Package metrics owns the Prometheus registry for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the workflow engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	stepRuns    *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	extractions *prometheus.CounterVec
}

// New creates a registry with the engine metrics and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogflow",
			Name:      "step_runs_total",
			Help:      "Workflow step executions by outcome.",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blogflow",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of LLM provider calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider", "outcome"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogflow",
			Name:      "output_extractions_total",
			Help:      "Model responses by the extraction tier that produced a result.",
		}, []string{"tier"}),
	}
	m.registry.MustRegister(
		m.stepRuns,
		m.llmLatency,
		m.extractions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StepRun counts a finished step execution.
func (m *Metrics) StepRun(outcome string) {
	if m == nil {
		return
	}
	m.stepRuns.WithLabelValues(outcome).Inc()
}

// LLMRequest records the latency of one provider call.
func (m *Metrics) LLMRequest(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// Extraction counts which extraction tier succeeded ("none" for plain text).
func (m *Metrics) Extraction(tier string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(tier).Inc()
}
