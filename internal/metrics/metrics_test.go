package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.StepRun("succeeded")
	m.StepRun("succeeded")
	m.StepRun("llm_failed")
	m.Extraction("fenced")
	m.LLMRequest("ollama", 2*time.Second, nil)
	m.LLMRequest("ollama", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stepRuns.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepRuns.WithLabelValues("llm_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("fenced")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.llmLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StepRun("succeeded")
		m.Extraction("none")
		m.LLMRequest("openai", time.Second, nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.StepRun("succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `blogflow_step_runs_total{outcome="succeeded"} 1`)
}
