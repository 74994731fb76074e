package ports

import (
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

// MetricsRecorder receives pipeline observations.
type MetricsRecorder interface {
	ObserveTransformation(kind domain.TransformationType, elapsed time.Duration, confidence float64)
	ObserveStrategyFailure(kind domain.TransformationType)
	ObserveTest(consistency float64, success bool)
	ObserveValidation(name string, score float64, passed bool)
	ObserveStability(metrics domain.StabilityMetrics)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveTransformation(domain.TransformationType, time.Duration, float64) {}
func (NopMetrics) ObserveStrategyFailure(domain.TransformationType) {}
func (NopMetrics) ObserveTest(float64, bool) {}
func (NopMetrics) ObserveValidation(string, float64, bool) {}
func (NopMetrics) ObserveStability(domain.StabilityMetrics) {}
