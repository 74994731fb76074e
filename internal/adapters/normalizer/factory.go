package normalizer

import (
	"fmt"

	"github.com/baditaflorin/go_robustness/internal/ports"
)

// NormalizerType selects a normalizer implementation.
type NormalizerType string

const (
	// DefaultNormalizerType is the straightforward rune-by-rune normalizer.
	DefaultNormalizerType NormalizerType = "default"
	// PooledNormalizerType reuses buffers and collapses whitespace.
	PooledNormalizerType NormalizerType = "pooled"
)

// New creates the normalizer named by t; an empty name selects the default.
func New(t NormalizerType) (ports.Normalizer, error) {
	switch t {
	case "", DefaultNormalizerType:
		return NewDefaultNormalizer(), nil
	case PooledNormalizerType:
		return NewPooledNormalizer(), nil
	}
	return nil, fmt.Errorf("unknown normalizer type %q", t)
}
