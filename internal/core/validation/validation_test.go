package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/baditaflorin/go_robustness/internal/adapters/logger"
	"github.com/baditaflorin/go_robustness/internal/adapters/normalizer"
	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

const original = `The analysis shows that revenue did not decrease this year.

Therefore, we recommend that the team should expand into new markets.`

func newValidator(t *testing.T, config domain.ValidationConfig, opts ...Option) *Validator {
	t.Helper()
	v, err := NewValidator(config, logger.NewNopLogger(), normalizer.NewDefaultNormalizer(), opts...)
	require.NoError(t, err)
	return v
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f fakeEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return f.vectors, f.err
}

type panickingValidator struct{}

func (panickingValidator) Name() string { return "panicking" }

func (panickingValidator) Threshold() float64 { return 0.5 }

func (panickingValidator) Validate(context.Context, string, string, domain.TransformationResult) domain.ValidationResult {
	panic("validator exploded")
}

func TestIdenticalTextPasses(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig())
	results := v.Validate(context.Background(), original, original, domain.TransformationResult{})

	require.Len(t, results, 2)
	semantic := results[SemanticName]
	assert.InDelta(t, 1.0, semantic.Score, 1e-9)
	assert.True(t, semantic.Passed)
	assert.Equal(t, "lexical", semantic.Details["similarity_method"])
	assert.Equal(t, true, semantic.Details["key_terms_preserved"])
	assert.Equal(t, 0.7, semantic.Confidence)

	structural := results[StructuralName]
	assert.True(t, structural.Passed)
	assert.GreaterOrEqual(t, structural.Score, 0.94)

	overall := v.OverallScore(results)
	assert.GreaterOrEqual(t, overall, 0.98)
	assert.True(t, v.Passed(overall))
}

func TestNegationFlipLowersScore(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig())
	flipped := "The analysis shows that revenue did decrease this year.\n\nTherefore, we recommend that the team should expand into new markets."

	results := v.Validate(context.Background(), original, flipped, domain.TransformationResult{})
	semantic := results[SemanticName]
	assert.Equal(t, 0.3, semantic.Details["negation_consistency"])
	assert.Less(t, semantic.Score, 0.9)
	assert.Contains(t, semantic.Details["missing_key_terms"], "not")
}

func TestNegationConsistency(t *testing.T) {
	tests := []struct {
		orig, trans int
		want        float64
	}{
		{0, 0, 1},
		{0, 2, 0.3},
		{2, 0, 0.3},
		{2, 1, 1},
		{1, 2, 1},
		{4, 1, 0.7},
		{1, 4, 0.7},
		{1, 5, 0.3},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, negationConsistency(tc.orig, tc.trans), "%d/%d", tc.orig, tc.trans)
	}
}

func TestEmbeddingPath(t *testing.T) {
	embedder := fakeEmbedder{vectors: [][]float32{{1, 0}, {1, 0}}}
	v := newValidator(t, domain.DefaultValidationConfig(), WithEmbedder(embedder))

	semantic := v.Validate(context.Background(), original, original, domain.TransformationResult{})[SemanticName]
	assert.Equal(t, "embedding", semantic.Details["similarity_method"])
	assert.Equal(t, 0.9, semantic.Confidence)
	assert.InDelta(t, 1.0, semantic.Score, 1e-9)
}

func TestEmbeddingFailureFallsBack(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig(), WithEmbedder(fakeEmbedder{err: errors.New("rate limited")}))

	semantic := v.Validate(context.Background(), original, original, domain.TransformationResult{})[SemanticName]
	assert.Equal(t, "lexical", semantic.Details["similarity_method"])
	assert.Equal(t, "rate limited", semantic.Details["embedding_error"])
	assert.InDelta(t, 1.0, semantic.Score, 1e-9)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{-1, 0}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestStructuralShape(t *testing.T) {
	config := domain.DefaultValidationConfig()
	s, err := NewStructuralValidator(config, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	require.NoError(t, err)

	merged := "The analysis shows that revenue did not decrease this year. Therefore, we recommend that the team should expand into new markets."
	r := s.Validate(context.Background(), original, merged, domain.TransformationResult{})
	assert.InDelta(t, 0.5, r.Details["paragraph_score"], 1e-9)
	assert.Equal(t, 1.0, r.Details["sentence_score"])
	assert.InDelta(t, 0.8, r.Details["coherence_score"], 1e-9)
	assert.Equal(t, 1, r.Details["transitional_sentences"])
}

func TestFailingValidatorIsIsolated(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig(), WithValidator(panickingValidator{}, 0))
	results := v.Validate(context.Background(), original, original, domain.TransformationResult{})

	require.Len(t, results, 3)
	failed := results["panicking"]
	assert.Equal(t, 0.0, failed.Score)
	assert.False(t, failed.Passed)
	assert.Equal(t, "validator exploded", failed.Details["error"])
	assert.True(t, results[SemanticName].Passed)

	assert.Len(t, v.Validators(), 3)
	assert.GreaterOrEqual(t, v.OverallScore(results), 0.98, "unweighted validators do not contribute")
}

func TestOverallScore(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig())
	result := func(name string, score float64) domain.ValidationResult {
		return domain.NewValidationResult(name, score, 0.5, nil, 1, 0)
	}

	tests := []struct {
		name    string
		results map[string]domain.ValidationResult
		want    float64
	}{
		{"empty", map[string]domain.ValidationResult{}, 0},
		{"weighted", map[string]domain.ValidationResult{
			SemanticName:   result(SemanticName, 1),
			StructuralName: result(StructuralName, 0),
		}, 0.7},
		{"structural only", map[string]domain.ValidationResult{StructuralName: result(StructuralName, 0.4)}, 0.4},
		{"unweighted only", map[string]domain.ValidationResult{
			"a": result("a", 0.2),
			"b": result("b", 0.6),
		}, 0.4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, v.OverallScore(tc.results), 1e-9)
		})
	}
}

func TestMaxValidationTimeIsReported(t *testing.T) {
	config := domain.DefaultValidationConfig()
	config.MaxValidationTime = time.Nanosecond
	v := newValidator(t, config)

	for _, r := range v.Validate(context.Background(), original, original, domain.TransformationResult{}) {
		assert.Equal(t, true, r.Details["exceeded_max_validation_time"])
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := newValidator(t, domain.DefaultValidationConfig())

	for name, r := range v.Validate(ctx, original, original, domain.TransformationResult{}) {
		assert.Equal(t, 0.0, r.Score, name)
		assert.False(t, r.Passed, name)
		assert.Equal(t, "validation cancelled", r.Details["error"])
	}
}

func TestSummarize(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig())
	tv := Summarize(context.Background(), v, domain.TransformationResult{
		OriginalText:       original,
		TransformedText:    original,
		TransformationType: domain.ParagraphReordering,
	})
	assert.Equal(t, domain.ParagraphReordering, tv.TransformationType)
	assert.True(t, tv.Passed)
	assert.Len(t, tv.Results, 2)
}

func TestInvalidConfig(t *testing.T) {
	config := domain.DefaultValidationConfig()
	config.OverallValidationThreshold = 1.5
	_, err := NewValidator(config, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = NewValidator(domain.DefaultValidationConfig(), logger.NewNopLogger(), nil)
	assert.Error(t, err)
}

func TestPassedIsDerivedFromScore(t *testing.T) {
	v := newValidator(t, domain.DefaultValidationConfig())
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[a-zA-Z .,!?\n]{0,200}`).Draw(t, "original")
		b := rapid.StringMatching(`[a-zA-Z .,!?\n]{0,200}`).Draw(t, "transformed")
		results := v.Validate(context.Background(), a, b, domain.TransformationResult{})
		for name, r := range results {
			if r.Score < 0 || r.Score > 1 {
				t.Fatalf("%s score %v out of range", name, r.Score)
			}
			if r.Passed != (r.Score >= r.Threshold) {
				t.Fatalf("%s passed=%v score=%v threshold=%v", name, r.Passed, r.Score, r.Threshold)
			}
		}
		overall := v.OverallScore(results)
		if overall < 0 || overall > 1 {
			t.Fatalf("overall %v out of range", overall)
		}
	})
}

func TestLengthDrift(t *testing.T) {
	words, err := NewLengthValidator(DefaultLengthConfig(), logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	require.NoError(t, err)

	ten := "one two three four five six seven eight nine ten"
	r := words.Validate(context.Background(), ten, ten+" eleven", domain.TransformationResult{})
	assert.InDelta(t, 1-1.0/3, r.Score, 1e-9)
	assert.False(t, r.Passed)
	assert.Equal(t, 10, r.Details["original_length"])
	assert.Equal(t, 11, r.Details["transformed_length"])

	r = words.Validate(context.Background(), ten, "one", domain.TransformationResult{})
	assert.Equal(t, 0.0, r.Score)

	r = words.Validate(context.Background(), "", ten, domain.TransformationResult{})
	assert.Equal(t, 0.0, r.Score)
	assert.Contains(t, r.Details, "error")

	chars, err := NewLengthValidator(LengthConfig{Threshold: 0.5, MaxDiffRatio: 1, Unit: CharacterUnit}, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	require.NoError(t, err)
	r = chars.Validate(context.Background(), "abcd", "ABCD!", domain.TransformationResult{})
	// Punctuation normalizes to a space, so five runes against four.
	assert.InDelta(t, 0.75, r.Score, 1e-9)
	assert.True(t, r.Passed)

	_, err = NewLengthValidator(LengthConfig{Threshold: 0.5, MaxDiffRatio: 0, Unit: WordUnit}, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewLengthValidator(LengthConfig{Threshold: 0.5, MaxDiffRatio: 1, Unit: "pages"}, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestZeroWeightValidatorIsReportedOnly(t *testing.T) {
	lengthCheck, err := NewLengthValidator(DefaultLengthConfig(), logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	require.NoError(t, err)
	plain := newValidator(t, domain.DefaultValidationConfig())
	withLength := newValidator(t, domain.DefaultValidationConfig(), WithValidator(lengthCheck, 0))

	transformed := original + " Coffee remains one of the most popular beverages worldwide."
	a := plain.Validate(context.Background(), original, transformed, domain.TransformationResult{})
	b := withLength.Validate(context.Background(), original, transformed, domain.TransformationResult{})

	require.Contains(t, b, LengthName)
	assert.Len(t, withLength.Validators(), 3)
	assert.InDelta(t, plain.OverallScore(a), withLength.OverallScore(b), 1e-9)
}
