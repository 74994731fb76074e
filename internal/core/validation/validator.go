// Package validation checks that a transformation preserved the meaning and
// structure of the original text.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// Default weights for OverallScore. Validators without a weight do not contribute.
var defaultWeights = map[string]float64{
	SemanticName:   0.7,
	StructuralName: 0.3,
}

// Validator runs every registered check over a transformation.
type Validator struct {
	config     domain.ValidationConfig
	logger     ports.Logger
	metrics    ports.MetricsRecorder
	embedder   ports.Embedder
	validators []ports.Validator
	weights    map[string]float64
}

// Option configures a Validator.
type Option func(*Validator)

// WithEmbedder enables the embedding path of the semantic validator.
func WithEmbedder(e ports.Embedder) Option {
	return func(v *Validator) { v.embedder = e }
}

// WithMetrics records every validator outcome.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(v *Validator) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithValidator registers an additional check that contributes to the overall
// score with the given weight.
func WithValidator(check ports.Validator, weight float64) Option {
	return func(v *Validator) {
		v.validators = append(v.validators, check)
		v.weights[check.Name()] = weight
	}
}

// NewValidator builds the semantic and structural validators.
func NewValidator(config domain.ValidationConfig, logger ports.Logger, normalizer ports.Normalizer, opts ...Option) (*Validator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	v := &Validator{
		config:  config,
		logger:  logger,
		metrics: ports.NopMetrics{},
		weights: make(map[string]float64, len(defaultWeights)),
	}
	for name, w := range defaultWeights {
		v.weights[name] = w
	}
	for _, opt := range opts {
		opt(v)
	}
	extra := v.validators

	semantic, err := NewSemanticValidator(config, logger, normalizer, v.embedder)
	if err != nil {
		return nil, err
	}
	structural, err := NewStructuralValidator(config, logger, normalizer)
	if err != nil {
		return nil, err
	}
	v.validators = append([]ports.Validator{semantic, structural}, extra...)
	return v, nil
}

// Validators returns the registered checks in execution order.
func (v *Validator) Validators() []ports.Validator {
	return append([]ports.Validator(nil), v.validators...)
}

// Validate runs every check. A check that panics yields a zero score carrying
// the error in its details; the remaining checks still run.
func (v *Validator) Validate(ctx context.Context, original, transformed string, result domain.TransformationResult) map[string]domain.ValidationResult {
	start := time.Now()
	results := make(map[string]domain.ValidationResult, len(v.validators))
	for _, check := range v.validators {
		r := v.run(ctx, check, original, transformed, result)
		results[check.Name()] = r
		v.metrics.ObserveValidation(check.Name(), r.Score, r.Passed)
	}

	if limit := v.config.MaxValidationTime; limit > 0 {
		if elapsed := time.Since(start); elapsed > limit {
			v.logger.Warn("Validation exceeded time budget",
				"elapsed", elapsed,
				"limit", limit,
				"transformation", result.TransformationType.String(),
			)
			for _, r := range results {
				r.Details["exceeded_max_validation_time"] = true
			}
		}
	}
	return results
}

func (v *Validator) run(ctx context.Context, check ports.Validator, original, transformed string, tr domain.TransformationResult) (r domain.ValidationResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			v.logger.Error("Validator failed", "validator", check.Name(), "panic", p)
			details := map[string]interface{}{"error": fmt.Sprint(p)}
			r = domain.NewValidationResult(check.Name(), 0, check.Threshold(), details, 0, time.Since(start))
		}
	}()
	return check.Validate(ctx, original, transformed, tr)
}

// OverallScore combines the weighted validator scores, renormalising over the
// validators that are present. With no weighted result it falls back to the
// plain mean.
func (v *Validator) OverallScore(results map[string]domain.ValidationResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum, total, plain float64
	for name, r := range results {
		plain += r.Score
		if w := v.weights[name]; w > 0 {
			sum += w * r.Score
			total += w
		}
	}
	if total == 0 {
		return domain.Clamp01(plain / float64(len(results)))
	}
	return domain.Clamp01(sum / total)
}

// Passed reports whether overall meets the overall validation threshold.
func (v *Validator) Passed(overall float64) bool {
	return overall >= v.config.OverallValidationThreshold
}

// Summarize validates one transformation and folds the results into a TransformationValidation.
func Summarize(ctx context.Context, tv ports.TransformationValidator, result domain.TransformationResult) domain.TransformationValidation {
	results := tv.Validate(ctx, result.OriginalText, result.TransformedText, result)
	overall := tv.OverallScore(results)
	return domain.TransformationValidation{
		TransformationType: result.TransformationType,
		Results:            results,
		OverallScore:       overall,
		Passed:             tv.Passed(overall),
	}
}
