package ports

import (
	"context"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

// Strategy is a meaning-preserving text transformation.
type Strategy interface {
	// Type identifies the strategy kind.
	Type() domain.TransformationType
	// IsApplicable is a cheap, deterministic predicate over the input text.
	IsApplicable(text string) bool
	// Transform never panics past its own boundary; failures are reported
	// through the result's Status and Metadata["error"].
	Transform(ctx context.Context, text string) domain.TransformationResult
}

// SynonymProvider supplies replacement candidates for a lower-cased word.
type SynonymProvider interface {
	Name() string
	Synonyms(word string) []string
}
