// robustness.go
// Package robustness measures whether the conclusions of an analytical text
// survive meaning-preserving perturbations. Each text is rewritten by three
// strategies (synonym replacement, paragraph reordering and irrelevant content
// injection), every rewrite is validated, and the consistency of the
// conclusions across rewrites is scored:
//
//	consistency = 0.7 * conclusion consistency + 0.3 * transformation confidence
//
// A set of results can then be aggregated into stability metrics with a
// confidence interval.
//
// The functions here run the pipeline with its default configuration. Use
// package pipeline for functional options.
package robustness

import (
	"context"

	"github.com/baditaflorin/go_robustness/pkg/pipeline"
)

// Result is the outcome of one robustness test.
type Result = pipeline.TestExecutionResult

// Stability is the aggregate of a set of robustness tests.
type Stability = pipeline.StabilityMetrics

// RunWithDefaults runs a robustness test with the default configuration.
// targetConclusions, when given, replace the conclusions extracted from text
// as the reference every rewrite is compared against.
func RunWithDefaults(ctx context.Context, text string, targetConclusions ...string) (Result, error) {
	p, err := pipeline.New()
	if err != nil {
		return Result{}, err
	}
	return p.Run(ctx, "", text, targetConclusions...), nil
}

// AnalyzeWithDefaults runs a robustness test for every text and returns the
// stability of the whole set along with the individual results.
func AnalyzeWithDefaults(ctx context.Context, texts ...string) (Stability, []Result, error) {
	p, err := pipeline.New()
	if err != nil {
		return Stability{}, nil, err
	}
	inputs := make([]pipeline.BatchInput, len(texts))
	for i, t := range texts {
		inputs[i] = pipeline.BatchInput{Text: t}
	}
	results, err := p.RunBatch(ctx, inputs)
	if err != nil {
		return Stability{}, nil, err
	}
	return p.Analyze(ctx, results), results, nil
}
