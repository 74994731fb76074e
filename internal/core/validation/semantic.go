package validation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// SemanticName identifies the semantic similarity validator.
const SemanticName = "semantic_similarity"

const (
	embeddingConfidence = 0.9
	lexicalConfidence   = 0.7

	jaccardWeight = 0.4
	keywordWeight = 0.6

	similarityWeight   = 0.6
	keyTermWeight      = 0.25
	negationWeight     = 0.15
	keyTermWordWeight  = 2.0
	plainWordWeight    = 1.0
	minKeywordRuneSize = 3
)

// SemanticValidator estimates whether a transformation kept the meaning of the original.
type SemanticValidator struct {
	config     domain.ValidationConfig
	logger     ports.Logger
	normalizer ports.Normalizer
	embedder   ports.Embedder
}

// NewSemanticValidator creates a semantic similarity validator. embedder may be
// nil, in which case only the lexical approximation is used.
func NewSemanticValidator(config domain.ValidationConfig, logger ports.Logger, normalizer ports.Normalizer, embedder ports.Embedder) (*SemanticValidator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if normalizer == nil {
		return nil, errors.New("semantic validator requires a normalizer")
	}
	return &SemanticValidator{
		config:     config,
		logger:     logger,
		normalizer: normalizer,
		embedder:   embedder,
	}, nil
}

// Name identifies the validator.
func (s *SemanticValidator) Name() string { return SemanticName }

// Threshold is the configured semantic similarity threshold.
func (s *SemanticValidator) Threshold() float64 { return s.config.SemanticSimilarityThreshold }

// Validate scores 0.6 x similarity + 0.25 x key-term preservation + 0.15 x negation consistency.
func (s *SemanticValidator) Validate(ctx context.Context, original, transformed string, _ domain.TransformationResult) domain.ValidationResult {
	start := time.Now()
	details := make(map[string]interface{})

	select {
	case <-ctx.Done():
		s.logger.Error("Semantic validation cancelled", "error", ctx.Err())
		details["error"] = "validation cancelled"
		return domain.NewValidationResult(SemanticName, 0, s.Threshold(), details, 0, time.Since(start))
	default:
	}

	normOriginal := s.normalizer.Normalize(original)
	normTransformed := s.normalizer.Normalize(transformed)

	similarity, confidence := s.similarity(ctx, original, transformed, normOriginal, normTransformed, details)
	keyTerms, missing := keyTermPreservation(normOriginal, normTransformed)
	origNeg, transNeg := text.CountNegations(original), text.CountNegations(transformed)
	negation := negationConsistency(origNeg, transNeg)

	score := similarityWeight*similarity + keyTermWeight*keyTerms + negationWeight*negation

	details["similarity"] = similarity
	details["key_term_preservation"] = keyTerms
	details["key_terms_preserved"] = keyTerms >= s.config.KeyConclusionPreservationThreshold
	details["key_conclusion_preservation_threshold"] = s.config.KeyConclusionPreservationThreshold
	details["negation_consistency"] = negation
	if s.config.EnableDetailedAnalysis {
		details["missing_key_terms"] = missing
		details["original_negations"] = origNeg
		details["transformed_negations"] = transNeg
	}

	s.logger.Debug("Computed semantic similarity",
		"score", score,
		"similarity", similarity,
		"key_terms", keyTerms,
		"negation", negation,
	)

	return domain.NewValidationResult(SemanticName, score, s.Threshold(), details, confidence, time.Since(start))
}

// similarity prefers the embedding backend and falls back to the lexical
// approximation when none is configured or the backend fails.
func (s *SemanticValidator) similarity(ctx context.Context, original, transformed, normOriginal, normTransformed string, details map[string]interface{}) (float64, float64) {
	if s.embedder != nil {
		vectors, err := s.embedder.Embed(ctx, []string{original, transformed})
		if err == nil && len(vectors) == 2 {
			details["similarity_method"] = "embedding"
			return Cosine(vectors[0], vectors[1]), embeddingConfidence
		}
		if err == nil {
			err = errors.New("embedding backend returned an unexpected number of vectors")
		}
		s.logger.Warn("Embedding similarity unavailable, using lexical fallback", "error", err)
		details["embedding_error"] = err.Error()
	}

	jaccard := text.WordJaccard(normOriginal, normTransformed)
	keywords := weightedKeywordOverlap(normOriginal, normTransformed)
	penalty := text.LengthRatio(
		float64(utf8.RuneCountInString(strings.TrimSpace(original))),
		float64(utf8.RuneCountInString(strings.TrimSpace(transformed))),
	)

	details["similarity_method"] = "lexical"
	details["jaccard"] = jaccard
	details["keyword_overlap"] = keywords
	details["length_penalty"] = penalty

	return domain.Clamp01((jaccardWeight*jaccard + keywordWeight*keywords) * penalty), lexicalConfidence
}

// Cosine returns the cosine similarity of two vectors clipped to [0,1].
// Mismatched or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	x, y := toFloat64(a), toFloat64(b)
	na, nb := floats.Norm(x, 2), floats.Norm(y, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return domain.Clamp01(floats.Dot(x, y) / (na * nb))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// weightedKeywordOverlap is a weighted Jaccard over content words: key terms
// weigh twice as much as other non-stopwords of three or more letters.
func weightedKeywordOverlap(normOriginal, normTransformed string) float64 {
	a, b := keywords(normOriginal), keywords(normTransformed)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var inter, union float64
	for w, weight := range a {
		union += weight
		if _, ok := b[w]; ok {
			inter += weight
		}
	}
	for w, weight := range b {
		if _, ok := a[w]; !ok {
			union += weight
		}
	}
	return inter / union
}

func keywords(normalized string) map[string]float64 {
	out := make(map[string]float64)
	for _, w := range strings.Fields(normalized) {
		switch {
		case text.IsKeyTerm(w):
			out[w] = keyTermWordWeight
		case !text.IsStopword(w) && utf8.RuneCountInString(w) >= minKeywordRuneSize:
			out[w] = plainWordWeight
		}
	}
	return out
}

// keyTermPreservation is the fraction of the original's key terms that are
// still present. An original without key terms preserves everything.
func keyTermPreservation(normOriginal, normTransformed string) (float64, []string) {
	orig := text.PresentKeyTerms(normOriginal)
	if len(orig) == 0 {
		return 1, []string{}
	}
	trans := text.PresentKeyTerms(normTransformed)
	missing := []string{}
	for term := range orig {
		if _, ok := trans[term]; !ok {
			missing = append(missing, term)
		}
	}
	sort.Strings(missing)
	return float64(len(orig)-len(missing)) / float64(len(orig)), missing
}

// negationConsistency bands the ratio of negation counts.
func negationConsistency(original, transformed int) float64 {
	if original == 0 && transformed == 0 {
		return 1
	}
	if original == 0 || transformed == 0 {
		return 0.3
	}
	ratio := float64(transformed) / float64(original)
	switch {
	case ratio >= 0.5 && ratio <= 2:
		return 1
	case ratio >= 0.25 && ratio <= 4:
		return 0.7
	default:
		return 0.3
	}
}
