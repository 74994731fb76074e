package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

// Registry holds test results keyed by test ID. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	results map[string]domain.TestExecutionResult
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{results: make(map[string]domain.TestExecutionResult)}
}

// Store saves r, replacing any earlier result with the same test ID.
func (r *Registry) Store(result domain.TestExecutionResult) {
	r.mu.Lock()
	r.results[result.TestID] = result
	r.mu.Unlock()
}

// Get returns the result stored under id.
func (r *Registry) Get(id string) (domain.TestExecutionResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[id]
	return result, ok
}

// All returns every stored result ordered by timestamp, then test ID.
func (r *Registry) All() []domain.TestExecutionResult {
	r.mu.RLock()
	out := make([]domain.TestExecutionResult, 0, len(r.results))
	for _, result := range r.results {
		out = append(out, result)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].TestID < out[j].TestID
	})
	return out
}

// Len returns the number of stored results.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}

// Clear drops every stored result.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.results = make(map[string]domain.TestExecutionResult)
	r.mu.Unlock()
}

// Summarize aggregates a set of results. An empty set yields a zero summary.
func Summarize(results []domain.TestExecutionResult) domain.TestSummary {
	summary := domain.TestSummary{TotalTests: len(results)}
	if len(results) == 0 {
		return summary
	}

	var total float64
	summary.MinConsistency = math.Inf(1)
	summary.MaxConsistency = math.Inf(-1)
	for _, r := range results {
		if r.SuccessCriteriaMet {
			summary.PassedTests++
		}
		total += r.ConsistencyScore
		summary.MinConsistency = math.Min(summary.MinConsistency, r.ConsistencyScore)
		summary.MaxConsistency = math.Max(summary.MaxConsistency, r.ConsistencyScore)
		summary.TotalTransformations += len(r.TransformationResults)
	}
	summary.FailedTests = summary.TotalTests - summary.PassedTests
	summary.SuccessRate = float64(summary.PassedTests) / float64(summary.TotalTests)
	summary.MeanConsistency = total / float64(summary.TotalTests)
	return summary
}
