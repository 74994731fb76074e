// Package engine runs the transformation strategies over a text, scores how
// well its conclusions survive, and keeps the results in a registry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/transform"
	"github.com/baditaflorin/go_robustness/internal/core/validation"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

const (
	conclusionWeight = 0.7
	confidenceWeight = 0.3
)

// Engine executes robustness tests. Strategies run sequentially in
// registration order; the registry may be shared by concurrent callers.
type Engine struct {
	config     domain.RobustnessTestConfig
	logger     ports.Logger
	normalizer ports.Normalizer
	strategies []ports.Strategy
	provider   ports.SynonymProvider
	validator  ports.TransformationValidator
	metrics    ports.MetricsRecorder
	clock      func() time.Time
	extractor  *ConclusionExtractor
	registry   *Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategies replaces the default strategies. Order is preserved.
func WithStrategies(strategies ...ports.Strategy) Option {
	return func(e *Engine) { e.strategies = strategies }
}

// WithSynonymProvider sets the provider used to build the default synonym strategy.
func WithSynonymProvider(p ports.SynonymProvider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithValidator validates every transformation when validation is enabled.
func WithValidator(v ports.TransformationValidator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithMetrics records strategy and test outcomes.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRegistry shares a result registry between engines.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// New creates an engine. Without WithStrategies, one strategy of every kind is
// built from config.Transformation, which needs a synonym provider.
func New(config domain.RobustnessTestConfig, logger ports.Logger, normalizer ports.Normalizer, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if normalizer == nil {
		return nil, errors.New("engine requires a normalizer")
	}

	e := &Engine{
		config:     config,
		logger:     logger,
		normalizer: normalizer,
		metrics:    ports.NopMetrics{},
		clock:      time.Now,
		registry:   NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.strategies == nil {
		if e.provider == nil {
			return nil, errors.New("engine requires strategies or a synonym provider")
		}
		strategies, err := transform.NewDefaultStrategies(config.Transformation, e.provider, logger)
		if err != nil {
			return nil, err
		}
		e.strategies = strategies
	}
	e.extractor = NewConclusionExtractor(normalizer, nil)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() domain.RobustnessTestConfig { return e.config }

// Strategies returns the registered strategies in execution order.
func (e *Engine) Strategies() []ports.Strategy {
	return append([]ports.Strategy(nil), e.strategies...)
}

// ExtractConclusions returns the canonical conclusion sentences of s.
func (e *Engine) ExtractConclusions(s string) []string {
	return e.extractor.Extract(s)
}

// ExecuteRobustnessTest applies every applicable strategy to input and stores
// the result under testID, replacing any earlier result with that ID. It
// never panics; internal failures yield a zero-score result whose metadata
// carries the error.
func (e *Engine) ExecuteRobustnessTest(ctx context.Context, testID, input string, targetConclusions []string) (result domain.TestExecutionResult) {
	start := e.clock()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Robustness test failed", "test_id", testID, "panic", r)
			result = e.degenerate(testID, input, start, fmt.Sprint(r))
		}
		e.registry.Store(result)
		e.metrics.ObserveTest(result.ConsistencyScore, result.SuccessCriteriaMet)
	}()

	e.logger.Debug("Starting robustness test",
		"test_id", testID,
		"strategies", len(e.strategies),
		"text_length", len(input),
	)

	transformations, applied, skipped, failed, err := e.applyStrategies(ctx, input)
	if err != nil {
		e.logger.Error("Robustness test cancelled", "test_id", testID, "error", err)
		return e.degenerate(testID, input, start, err.Error())
	}

	reference := e.extractor.Extract(input)
	if len(targetConclusions) > 0 {
		reference = make([]string, 0, len(targetConclusions))
		for _, c := range targetConclusions {
			reference = append(reference, e.extractor.Canonical(c))
		}
	}

	perConclusion := make([]float64, len(transformations))
	combined := make([]float64, len(transformations))
	var consistency float64
	for i, tr := range transformations {
		perConclusion[i] = Consistency(reference, e.extractor.Extract(tr.TransformedText))
		combined[i] = conclusionWeight*perConclusion[i] + confidenceWeight*tr.ConfidenceScore
		consistency += combined[i]
	}
	if len(transformations) > 0 {
		consistency /= float64(len(transformations))
	}
	consistency = domain.Clamp01(consistency)

	perf := e.performance(transformations, applied, skipped, failed, input)

	var validations []domain.TransformationValidation
	if e.config.EnableValidation && e.validator != nil {
		validations = make([]domain.TransformationValidation, 0, len(transformations))
		for _, tr := range transformations {
			validations = append(validations, validation.Summarize(ctx, e.validator, tr))
		}
	}

	success := len(transformations) > 0 &&
		consistency >= e.config.TargetConsistencyScore &&
		maxProcessingTime(transformations) <= e.config.MaxProcessingTime

	metadata := map[string]interface{}{
		"conclusion_consistency": perConclusion,
		"combined_scores":        combined,
		"reference_conclusions":  len(reference),
		"target_supplied":        len(targetConclusions) > 0,
	}

	result = domain.TestExecutionResult{
		TestID:                testID,
		Timestamp:             start,
		OriginalText:          input,
		TransformationResults: transformations,
		ConsistencyScore:      consistency,
		PerformanceMetrics:    perf,
		ValidationResults:     validations,
		SuccessCriteriaMet:    success,
		ExecutionTime:         e.since(start),
		Metadata:              metadata,
	}

	e.logger.Info("Robustness test completed",
		"test_id", testID,
		"transformations", len(transformations),
		"consistency", consistency,
		"success", success,
	)
	return result
}

func (e *Engine) applyStrategies(ctx context.Context, input string) (results []domain.TransformationResult, applied, skipped, failed int, err error) {
	results = []domain.TransformationResult{}
	for _, s := range e.strategies {
		if cerr := ctx.Err(); cerr != nil {
			return nil, applied, skipped, failed, cerr
		}
		tr, applicable, applyErr := transform.Apply(ctx, s, input)
		switch {
		case !applicable:
			skipped++
			e.logger.Debug("Strategy not applicable", "type", s.Type().String())
		case applyErr != nil:
			failed++
			e.metrics.ObserveStrategyFailure(s.Type())
			e.logger.Warn("Strategy failed, skipping", "type", s.Type().String(), "error", applyErr)
		default:
			applied++
			e.metrics.ObserveTransformation(tr.TransformationType, tr.ProcessingTime, tr.ConfidenceScore)
			results = append(results, tr)
		}
	}
	return results, applied, skipped, failed, nil
}

func (e *Engine) performance(transformations []domain.TransformationResult, applied, skipped, failed int, input string) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{
		TransformationCount: len(transformations),
		StrategiesApplied:   applied,
		StrategiesSkipped:   skipped,
		StrategiesFailed:    failed,
		TextLength:          utf8.RuneCountInString(input),
	}
	if !e.config.EnablePerformanceTracking || len(transformations) == 0 {
		return m
	}
	m.MinProcessingTime = transformations[0].ProcessingTime
	for _, tr := range transformations {
		m.TotalProcessingTime += tr.ProcessingTime
		if tr.ProcessingTime > m.MaxProcessingTime {
			m.MaxProcessingTime = tr.ProcessingTime
		}
		if tr.ProcessingTime < m.MinProcessingTime {
			m.MinProcessingTime = tr.ProcessingTime
		}
	}
	m.MeanProcessingTime = m.TotalProcessingTime / time.Duration(len(transformations))
	return m
}

func maxProcessingTime(transformations []domain.TransformationResult) time.Duration {
	var longest time.Duration
	for _, tr := range transformations {
		if tr.ProcessingTime > longest {
			longest = tr.ProcessingTime
		}
	}
	return longest
}

func (e *Engine) degenerate(testID, input string, start time.Time, cause string) domain.TestExecutionResult {
	return domain.TestExecutionResult{
		TestID:                testID,
		Timestamp:             start,
		OriginalText:          input,
		TransformationResults: []domain.TransformationResult{},
		PerformanceMetrics:    domain.PerformanceMetrics{TextLength: utf8.RuneCountInString(input)},
		ExecutionTime:         e.since(start),
		Metadata:              map[string]interface{}{"error": cause},
	}
}

func (e *Engine) since(start time.Time) time.Duration {
	if d := e.clock().Sub(start); d > 0 {
		return d
	}
	return 0
}

// Record stores an externally produced result.
func (e *Engine) Record(result domain.TestExecutionResult) { e.registry.Store(result) }

// Result returns the stored result for id.
func (e *Engine) Result(id string) (domain.TestExecutionResult, bool) { return e.registry.Get(id) }

// Results returns every stored result in timestamp order.
func (e *Engine) Results() []domain.TestExecutionResult { return e.registry.All() }

// Clear drops every stored result.
func (e *Engine) Clear() { e.registry.Clear() }

// Summary aggregates the stored results.
func (e *Engine) Summary() domain.TestSummary { return Summarize(e.registry.All()) }
