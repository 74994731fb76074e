// Package metrics exposes pipeline observations as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

const namespace = "robustness"

var unitBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0}

// PrometheusRecorder implements ports.MetricsRecorder on a caller-supplied registry.
type PrometheusRecorder struct {
	transformationDuration   *prometheus.HistogramVec
	transformationConfidence *prometheus.HistogramVec
	strategyFailures         *prometheus.CounterVec
	testConsistency          prometheus.Histogram
	testsTotal               *prometheus.CounterVec
	validationScore          *prometheus.HistogramVec
	validationsTotal         *prometheus.CounterVec
	overallStability         prometheus.Gauge
	stabilityAnalyses        *prometheus.CounterVec
}

// NewPrometheusRecorder registers the pipeline collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		transformationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transformation",
			Name:      "duration_seconds",
			Help:      "Time spent applying a transformation strategy",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"type"}),
		transformationConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transformation",
			Name:      "confidence",
			Help:      "Distribution of transformation confidence scores",
			Buckets:   unitBuckets,
		}, []string{"type"}),
		strategyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transformation",
			Name:      "failures_total",
			Help:      "Strategies that failed and were omitted from a test",
		}, []string{"type"}),
		testConsistency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "test",
			Name:      "consistency_score",
			Help:      "Distribution of robustness test consistency scores",
			Buckets:   unitBuckets,
		}),
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "test",
			Name:      "executions_total",
			Help:      "Robustness tests executed, by outcome",
		}, []string{"outcome"}),
		validationScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "score",
			Help:      "Distribution of validator scores",
			Buckets:   unitBuckets,
		}, []string{"validator"}),
		validationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "results_total",
			Help:      "Validator results, by outcome",
		}, []string{"validator", "outcome"}),
		overallStability: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stability",
			Name:      "overall",
			Help:      "Overall stability of the most recent analysis",
		}),
		stabilityAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stability",
			Name:      "analyses_total",
			Help:      "Stability analyses, by status",
		}, []string{"status"}),
	}

	collectors := []prometheus.Collector{
		r.transformationDuration, r.transformationConfidence, r.strategyFailures,
		r.testConsistency, r.testsTotal, r.validationScore, r.validationsTotal,
		r.overallStability, r.stabilityAnalyses,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveTransformation(kind domain.TransformationType, elapsed time.Duration, confidence float64) {
	r.transformationDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
	r.transformationConfidence.WithLabelValues(kind.String()).Observe(confidence)
}

func (r *PrometheusRecorder) ObserveStrategyFailure(kind domain.TransformationType) {
	r.strategyFailures.WithLabelValues(kind.String()).Inc()
}

func (r *PrometheusRecorder) ObserveTest(consistency float64, success bool) {
	r.testConsistency.Observe(consistency)
	r.testsTotal.WithLabelValues(outcome(success)).Inc()
}

func (r *PrometheusRecorder) ObserveValidation(name string, score float64, passed bool) {
	r.validationScore.WithLabelValues(name).Observe(score)
	r.validationsTotal.WithLabelValues(name, outcome(passed)).Inc()
}

func (r *PrometheusRecorder) ObserveStability(m domain.StabilityMetrics) {
	r.stabilityAnalyses.WithLabelValues(string(m.Status)).Inc()
	if m.Status == domain.AnalysisOK {
		r.overallStability.Set(m.OverallStability)
	}
}

func outcome(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}
