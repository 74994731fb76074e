package ports

import (
	"context"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

// Validator checks one dimension of a transformation.
type Validator interface {
	Name() string
	Threshold() float64
	Validate(ctx context.Context, original, transformed string, result domain.TransformationResult) domain.ValidationResult
}

// TransformationValidator runs every validator over a transformation and combines their scores.
type TransformationValidator interface {
	Validate(ctx context.Context, original, transformed string, result domain.TransformationResult) map[string]domain.ValidationResult
	OverallScore(results map[string]domain.ValidationResult) float64
	Passed(overall float64) bool
}
