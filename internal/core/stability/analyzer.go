// Package stability aggregates many robustness test results into
// confidence-bounded stability metrics.
package stability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/engine"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

var (
	// ErrInsufficientSample is reported in StabilityMetrics.Error when fewer
	// results than MinSampleSize were supplied.
	ErrInsufficientSample = errors.New("insufficient sample")

	// ErrNoUsableResults is reported when every supplied result either ran no
	// transformation or failed.
	ErrNoUsableResults = errors.New("no usable results")
)

const (
	decisionWeight   = 0.4
	conclusionWeight = 0.3
	keyTermWeight    = 0.2
	structuralWeight = 0.1

	stableSlope = 0.01
)

// Analyzer computes stability metrics. It holds no state between calls.
type Analyzer struct {
	config          domain.StabilityAnalysisConfig
	logger          ports.Logger
	normalizer      ports.Normalizer
	metrics         ports.MetricsRecorder
	markers         []string
	recommendations []string
	conclusions     *engine.ConclusionExtractor
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics records every analysis.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewAnalyzer creates a stability analyzer. DecisionKeywords replace the
// default conclusion markers when set.
func NewAnalyzer(config domain.StabilityAnalysisConfig, logger ports.Logger, normalizer ports.Normalizer, opts ...Option) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if normalizer == nil {
		return nil, errors.New("stability analyzer requires a normalizer")
	}
	markers := normalizeMarkers(config.DecisionKeywords)
	if len(markers) == 0 {
		markers = text.ConclusionMarkers()
	}
	a := &Analyzer{
		config:          config,
		logger:          logger,
		normalizer:      normalizer,
		metrics:         ports.NopMetrics{},
		markers:         markers,
		recommendations: text.RecommendationMarkers(),
		conclusions:     engine.NewConclusionExtractor(normalizer, markers),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AnalyzeStability aggregates results. It never panics: a sample that is too
// small yields all-zero metrics with status insufficient_sample, a sample in
// which no result ran a transformation yields no_usable_results, and an
// internal failure yields status failed.
func (a *Analyzer) AnalyzeStability(ctx context.Context, results []domain.TestExecutionResult) domain.StabilityMetrics {
	m, _ := a.AnalyzeDetailed(ctx, results)
	return m
}

// AnalyzeDetailed is AnalyzeStability that also returns the decision points
// extracted from the original texts.
func (a *Analyzer) AnalyzeDetailed(ctx context.Context, results []domain.TestExecutionResult) (m domain.StabilityMetrics, points []domain.DecisionPoint) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Stability analysis failed", "panic", r)
			m, points = failed(fmt.Sprint(r)), nil
		}
		a.metrics.ObserveStability(m)
	}()

	if len(results) < a.config.MinSampleSize {
		a.logger.Warn("Insufficient sample for stability analysis",
			"supplied", len(results),
			"min_sample_size", a.config.MinSampleSize,
		)
		return domain.StabilityMetrics{
			Status: domain.AnalysisInsufficientSample,
			Error:  ErrInsufficientSample.Error(),
		}, nil
	}

	// Averages cover only results that ran at least one transformation.
	usable := make([]domain.TestExecutionResult, 0, len(results))
	for _, r := range results {
		if len(r.TransformationResults) > 0 && !r.Failed() {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		a.logger.Warn("No usable results for stability analysis", "supplied", len(results))
		return domain.StabilityMetrics{
			SampleSize: len(results),
			Status:     domain.AnalysisNoUsableResults,
			Error:      ErrNoUsableResults.Error(),
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return failed(err.Error()), nil
	}

	points = a.decisionPoints(usable)
	decision := 1.0
	if len(points) > 0 {
		scores := make([]float64, len(points))
		for i, p := range points {
			scores[i] = p.StabilityScore
		}
		decision = mean(scores, 1)
	}

	m = domain.StabilityMetrics{
		DecisionConsistency: domain.Clamp01(decision),
		ConclusionStability: domain.Clamp01(a.conclusionStability(usable)),
		KeyTermPreservation: domain.Clamp01(a.keyTermPreservation(usable)),
		StructuralStability: domain.Clamp01(structuralStability(usable)),
		SampleSize:          len(results),
		DecisionPointCount:  len(points),
		Status:              domain.AnalysisOK,
	}
	m.OverallStability = domain.Clamp01(decisionWeight*m.DecisionConsistency +
		conclusionWeight*m.ConclusionStability +
		keyTermWeight*m.KeyTermPreservation +
		structuralWeight*m.StructuralStability)

	m.ConfidenceInterval = domain.ConfidenceInterval{Low: 0, High: 1}
	if a.config.EnableStatisticalAnalysis {
		m.ConfidenceInterval = Interval([]float64{
			m.DecisionConsistency, m.ConclusionStability, m.KeyTermPreservation, m.StructuralStability,
		}, a.config.ConfidenceLevel)
	}
	if a.config.EnableTrendAnalysis {
		m.Trend = Trend(usable)
	}
	m.MeetsThreshold = m.OverallStability >= a.config.MinStabilityThreshold

	a.logger.Info("Stability analysis completed",
		"sample_size", m.SampleSize,
		"usable", len(usable),
		"decision_points", m.DecisionPointCount,
		"overall", m.OverallStability,
		"meets_threshold", m.MeetsThreshold,
	)
	return m, points
}

func failed(cause string) domain.StabilityMetrics {
	return domain.StabilityMetrics{Status: domain.AnalysisFailed, Error: cause}
}

// decisionPoints extracts the original points of every test and matches the
// points of each transformed text against them.
func (a *Analyzer) decisionPoints(results []domain.TestExecutionResult) []domain.DecisionPoint {
	var points []domain.DecisionPoint
	for _, r := range results {
		trackers := a.newTrackers(a.ExtractDecisionPoints(r.OriginalText, r.TestID))
		for i, tr := range r.TransformationResults {
			a.match(trackers, a.ExtractDecisionPoints(tr.TransformedText, fmt.Sprintf("%s-t%d", r.TestID, i)))
		}
		for _, t := range trackers {
			p := t.finish()
			p.Metadata["test_id"] = r.TestID
			points = append(points, p)
		}
	}
	return points
}

// conclusionStability averages, over tests with at least one original
// conclusion, the fraction of conclusions each transformation kept.
func (a *Analyzer) conclusionStability(results []domain.TestExecutionResult) float64 {
	var perTest []float64
	for _, r := range results {
		original := a.conclusions.Extract(r.OriginalText)
		if len(original) == 0 {
			continue
		}
		scores := make([]float64, len(r.TransformationResults))
		for i, tr := range r.TransformationResults {
			scores[i] = engine.Consistency(original, a.conclusions.Extract(tr.TransformedText))
		}
		perTest = append(perTest, mean(scores, 1))
	}
	return mean(perTest, 1)
}

// keyTermPreservation averages, over tests whose original mentions a key
// term, the capped ratio of key-term counts after each transformation.
func (a *Analyzer) keyTermPreservation(results []domain.TestExecutionResult) float64 {
	var perTest []float64
	for _, r := range results {
		original := text.CountKeyTerms(a.normalizer.Normalize(r.OriginalText))
		if original == 0 {
			continue
		}
		scores := make([]float64, len(r.TransformationResults))
		for i, tr := range r.TransformationResults {
			transformed := text.CountKeyTerms(a.normalizer.Normalize(tr.TransformedText))
			scores[i] = math.Min(float64(transformed)/float64(original), 1)
		}
		perTest = append(perTest, mean(scores, 1))
	}
	return mean(perTest, 1)
}

// structuralStability averages the paragraph and sentence count ratios over
// every transformation of every test.
func structuralStability(results []domain.TestExecutionResult) float64 {
	var scores []float64
	for _, r := range results {
		paragraphs := float64(len(text.Paragraphs(r.OriginalText)))
		sentences := float64(len(text.Sentences(r.OriginalText)))
		for _, tr := range r.TransformationResults {
			p := text.LengthRatio(paragraphs, float64(len(text.Paragraphs(tr.TransformedText))))
			s := text.LengthRatio(sentences, float64(len(text.Sentences(tr.TransformedText))))
			scores = append(scores, (p+s)/2)
		}
	}
	return mean(scores, 1)
}

// Interval is the normal-approximation confidence interval of the sample
// mean at the given level, clipped to [0,1]. Fewer than two points give
// (0,1); a zero-variance sample collapses onto its mean.
func Interval(sample []float64, level float64) domain.ConfidenceInterval {
	if len(sample) < 2 {
		return domain.ConfidenceInterval{Low: 0, High: 1}
	}
	mu, sd := stat.MeanStdDev(sample, nil)
	if sd == 0 || math.IsNaN(sd) {
		c := domain.Clamp01(mu)
		return domain.ConfidenceInterval{Low: c, High: c}
	}
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - (1-level)/2)
	margin := z * sd / math.Sqrt(float64(len(sample)))
	return domain.ConfidenceInterval{
		Low:  domain.Clamp01(mu - margin),
		High: domain.Clamp01(mu + margin),
	}
}

// Trend fits consistency score against run order. Fewer than two results
// have no trend.
func Trend(results []domain.TestExecutionResult) *domain.TrendAnalysis {
	if len(results) < 2 {
		return nil
	}
	ordered := append([]domain.TestExecutionResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	xs := make([]float64, len(ordered))
	ys := make([]float64, len(ordered))
	for i, r := range ordered {
		xs[i] = float64(i)
		ys[i] = r.ConsistencyScore
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	direction := domain.TrendStable
	switch {
	case slope >= stableSlope:
		direction = domain.TrendImproving
	case slope <= -stableSlope:
		direction = domain.TrendDegrading
	}
	return &domain.TrendAnalysis{Slope: slope, Intercept: intercept, Direction: direction}
}

// mean returns the arithmetic mean, or empty when there is nothing to average.
func mean(values []float64, empty float64) float64 {
	if len(values) == 0 {
		return empty
	}
	return stat.Mean(values, nil)
}
