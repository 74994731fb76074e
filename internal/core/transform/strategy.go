// Package transform implements the meaning-preserving perturbation strategies.
package transform

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// NewRand returns a dedicated pseudo-random source for one strategy instance.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// New builds the strategy for kind. Each strategy owns its own random source
// seeded from config.RandomSeed, so construction order never affects draws.
func New(kind domain.TransformationType, config domain.TransformationConfig, provider ports.SynonymProvider, logger ports.Logger) (ports.Strategy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch kind {
	case domain.SynonymReplacement:
		if provider == nil {
			return nil, fmt.Errorf("synonym replacement requires a synonym provider")
		}
		return NewSynonymReplacer(config, provider, NewRand(config.RandomSeed), logger), nil
	case domain.ParagraphReordering:
		return NewParagraphReorderer(config, NewRand(config.RandomSeed), logger), nil
	case domain.IrrelevantContentInjection:
		return NewContentInjector(config, NewRand(config.RandomSeed), logger), nil
	}
	return nil, fmt.Errorf("%w: %d", domain.ErrUnknownTransformation, int(kind))
}

// NewDefaultStrategies builds every kind in registration order.
func NewDefaultStrategies(config domain.TransformationConfig, provider ports.SynonymProvider, logger ports.Logger) ([]ports.Strategy, error) {
	kinds := domain.TransformationTypes()
	strategies := make([]ports.Strategy, 0, len(kinds))
	for _, kind := range kinds {
		s, err := New(kind, config, provider, logger)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", kind, err)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// Apply runs s against text and converts a panic from a misbehaving strategy
// into an error. applicable is false when the strategy declined the text.
func Apply(ctx context.Context, s ports.Strategy, text string) (result domain.TransformationResult, applicable bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			applicable = true
			err = fmt.Errorf("strategy %s panicked: %v", s.Type(), r)
		}
	}()
	if !s.IsApplicable(text) {
		return domain.TransformationResult{}, false, nil
	}
	result = s.Transform(ctx, text)
	if result.Status == domain.StatusFatal {
		msg, _ := result.Metadata["error"].(string)
		return result, true, fmt.Errorf("strategy %s failed: %s", s.Type(), msg)
	}
	return result, true, nil
}

// fatal is the zero-confidence result a strategy returns after an internal failure.
func fatal(kind domain.TransformationType, original string, start time.Time, cause interface{}) domain.TransformationResult {
	return domain.TransformationResult{
		OriginalText:       original,
		TransformedText:    original,
		TransformationType: kind,
		ChangesMade:        []string{},
		ConfidenceScore:    0,
		ProcessingTime:     time.Since(start),
		Status:             domain.StatusFatal,
		Metadata:           map[string]interface{}{"error": fmt.Sprint(cause)},
	}
}

// finish stamps the common fields of a successful transformation.
func finish(kind domain.TransformationType, original, transformed string, changes []string, confidence float64, start time.Time, metadata map[string]interface{}) domain.TransformationResult {
	status := domain.StatusOK
	if transformed == original {
		status = domain.StatusDegraded
		metadata["unchanged"] = true
	}
	if changes == nil {
		changes = []string{}
	}
	return domain.TransformationResult{
		OriginalText:       original,
		TransformedText:    transformed,
		TransformationType: kind,
		ChangesMade:        changes,
		ConfidenceScore:    domain.Clamp01(confidence),
		ProcessingTime:     time.Since(start),
		Status:             status,
		Metadata:           metadata,
	}
}
