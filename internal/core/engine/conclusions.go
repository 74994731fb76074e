package engine

import (
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

const fallbackConclusionWords = 5

// ConclusionExtractor finds the sentences that state a conclusion.
type ConclusionExtractor struct {
	normalizer ports.Normalizer
	markers    []string
}

// NewConclusionExtractor uses markers, or the default conclusion markers when empty.
func NewConclusionExtractor(normalizer ports.Normalizer, markers []string) *ConclusionExtractor {
	if len(markers) == 0 {
		markers = text.ConclusionMarkers()
	}
	return &ConclusionExtractor{normalizer: normalizer, markers: markers}
}

// Extract returns the canonical form of every sentence that contains a
// conclusion marker, in order and without duplicates. When none does, the
// final sentence is used if it has more than five words.
func (c *ConclusionExtractor) Extract(s string) []string {
	sentences := text.Sentences(s)
	seen := make(map[string]struct{})
	conclusions := []string{}
	for _, sentence := range sentences {
		canonical := c.Canonical(sentence)
		if !text.HasPhrase(canonical, c.markers) {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		conclusions = append(conclusions, canonical)
	}
	if len(conclusions) > 0 || len(sentences) == 0 {
		return conclusions
	}
	last := sentences[len(sentences)-1]
	if text.WordCount(last) > fallbackConclusionWords {
		conclusions = append(conclusions, c.Canonical(last))
	}
	return conclusions
}

// Canonical normalises a sentence for comparison.
func (c *ConclusionExtractor) Canonical(sentence string) string {
	return text.Canonical(c.normalizer.Normalize(sentence))
}

// Consistency is the fraction of reference conclusions found among the
// candidates. An empty reference is fully consistent.
func Consistency(reference, candidates []string) float64 {
	if len(reference) == 0 {
		return 1
	}
	ref := text.Set(reference)
	found := 0
	for c := range text.Set(candidates) {
		if _, ok := ref[c]; ok {
			found++
		}
	}
	return float64(found) / float64(len(ref))
}
