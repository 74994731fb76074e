package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

var _ ports.MetricsRecorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	r.ObserveTransformation(domain.ParagraphReordering, 2*time.Millisecond, 0.5)
	r.ObserveStrategyFailure(domain.SynonymReplacement)
	r.ObserveTest(0.9, true)
	r.ObserveTest(0.1, false)
	r.ObserveValidation("semantic_similarity", 0.8, true)
	r.ObserveStability(domain.StabilityMetrics{Status: domain.AnalysisOK, OverallStability: 0.75})
	r.ObserveStability(domain.StabilityMetrics{Status: domain.AnalysisInsufficientSample})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.strategyFailures.WithLabelValues("synonym_replacement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.testsTotal.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.testsTotal.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.validationsTotal.WithLabelValues("semantic_similarity", "pass")))
	assert.Equal(t, 0.75, testutil.ToFloat64(r.overallStability))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stabilityAnalyses.WithLabelValues("insufficient_sample")))

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err, "registering twice on one registry must fail")
}
