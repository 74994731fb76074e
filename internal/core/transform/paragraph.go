package transform

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

const pairSwapProbability = 0.5

// ParagraphReorderer permutes blank-line separated paragraphs.
type ParagraphReorderer struct {
	config domain.TransformationConfig
	logger ports.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewParagraphReorderer creates a paragraph reordering strategy. A nil rng is
// replaced by one seeded from config.RandomSeed.
func NewParagraphReorderer(config domain.TransformationConfig, rng *rand.Rand, logger ports.Logger) *ParagraphReorderer {
	if rng == nil {
		rng = NewRand(config.RandomSeed)
	}
	return &ParagraphReorderer{config: config, rng: rng, logger: logger}
}

// Type identifies the strategy.
func (p *ParagraphReorderer) Type() domain.TransformationType { return domain.ParagraphReordering }

// IsApplicable requires at least two paragraphs.
func (p *ParagraphReorderer) IsApplicable(t string) bool {
	return len(text.Paragraphs(t)) >= 2
}

// Transform shuffles every paragraph with probability ParagraphShuffleProbability,
// otherwise swaps each even-indexed adjacent pair with probability one half.
func (p *ParagraphReorderer) Transform(ctx context.Context, original string) (result domain.TransformationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Paragraph reordering failed", "panic", r)
			result = fatal(domain.ParagraphReordering, original, start, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return fatal(domain.ParagraphReordering, original, start, err)
	}

	paragraphs := text.Paragraphs(original)
	n := len(paragraphs)
	if n < 2 {
		return fatal(domain.ParagraphReordering, original, start, "fewer than two paragraphs")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	var (
		changes     []string
		swaps       int
		fullShuffle bool
	)
	if p.rng.Float64() < p.config.ParagraphShuffleProbability {
		fullShuffle = true
		p.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		swaps = 1
		changes = append(changes, fmt.Sprintf("shuffled %d paragraphs into order %v", n, order))
	} else {
		for i := 0; i+1 < n; i += 2 {
			if p.rng.Float64() < pairSwapProbability {
				order[i], order[i+1] = order[i+1], order[i]
				swaps++
				changes = append(changes, fmt.Sprintf("swapped paragraphs %d and %d", i, i+1))
			}
		}
	}

	reordered := make([]string, n)
	for i, idx := range order {
		reordered[i] = paragraphs[idx]
	}

	p.logger.Debug("Paragraph reordering finished",
		"paragraphs", n,
		"swaps", swaps,
		"full_shuffle", fullShuffle,
	)

	confidence := float64(swaps) / float64(n-1)
	return finish(domain.ParagraphReordering, original, strings.Join(reordered, "\n\n"), changes, confidence, start, map[string]interface{}{
		"paragraph_count": n,
		"swaps":           swaps,
		"full_shuffle":    fullShuffle,
		"order":           order,
	})
}
