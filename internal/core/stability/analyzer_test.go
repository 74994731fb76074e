package stability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/baditaflorin/go_robustness/internal/adapters/logger"
	"github.com/baditaflorin/go_robustness/internal/adapters/normalizer"
	"github.com/baditaflorin/go_robustness/internal/core/domain"
)

const decisionText = "Revenue grew by 12 percent this year. Therefore, we should expand the team."

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newAnalyzer(t testing.TB, config domain.StabilityAnalysisConfig) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(config, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	require.NoError(t, err)
	return a
}

func result(id string, consistency float64, original string, transformed ...string) domain.TestExecutionResult {
	trs := make([]domain.TransformationResult, len(transformed))
	for i, tt := range transformed {
		trs[i] = domain.TransformationResult{
			OriginalText:       original,
			TransformedText:    tt,
			TransformationType: domain.ParagraphReordering,
			ConfidenceScore:    0.5,
			Status:             domain.StatusOK,
		}
	}
	return domain.TestExecutionResult{
		TestID:                id,
		Timestamp:             epoch,
		OriginalText:          original,
		TransformationResults: trs,
		ConsistencyScore:      consistency,
	}
}

type panickingNormalizer struct{}

func (panickingNormalizer) Normalize(string) string { panic("normalizer exploded") }

func TestInsufficientSample(t *testing.T) {
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())

	for _, results := range [][]domain.TestExecutionResult{
		nil,
		{result("one", 1, decisionText, decisionText)},
		{result("empty", 0, decisionText)},
	} {
		m := a.AnalyzeStability(context.Background(), results)
		assert.Equal(t, domain.AnalysisInsufficientSample, m.Status)
		assert.Equal(t, ErrInsufficientSample.Error(), m.Error)
		assert.Equal(t, 0.0, m.OverallStability)
		assert.Equal(t, 0.0, m.DecisionConsistency)
		assert.Equal(t, 0.0, m.ConclusionStability)
		assert.Equal(t, 0.0, m.KeyTermPreservation)
		assert.Equal(t, 0.0, m.StructuralStability)
		assert.Equal(t, domain.ConfidenceInterval{}, m.ConfidenceInterval)
		assert.Zero(t, m.SampleSize)
		assert.False(t, m.MeetsThreshold)
	}
}

func TestSampleGuardCountsSuppliedResults(t *testing.T) {
	config := domain.DefaultStabilityAnalysisConfig()
	config.MinSampleSize = 2
	a := newAnalyzer(t, config)

	transformed := result("changed", 1, decisionText, decisionText)
	untouched := result("untouched", 0, decisionText)

	m := a.AnalyzeStability(context.Background(), []domain.TestExecutionResult{transformed, untouched})
	require.Equal(t, domain.AnalysisOK, m.Status)
	assert.Empty(t, m.Error)
	assert.Equal(t, 2, m.SampleSize)
	assert.Greater(t, m.OverallStability, 0.0)

	config.MinSampleSize = 1
	alone := newAnalyzer(t, config).AnalyzeStability(context.Background(), []domain.TestExecutionResult{transformed})
	assert.Equal(t, alone.OverallStability, m.OverallStability)
	assert.Equal(t, alone.DecisionPointCount, m.DecisionPointCount)
}

func TestNoUsableResults(t *testing.T) {
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	failedRun := result("failed", 0, decisionText, decisionText)
	failedRun.Metadata = map[string]interface{}{"error": "boom"}

	m := a.AnalyzeStability(context.Background(), []domain.TestExecutionResult{
		result("empty", 0, decisionText),
		failedRun,
	})
	assert.Equal(t, domain.AnalysisNoUsableResults, m.Status)
	assert.Equal(t, ErrNoUsableResults.Error(), m.Error)
	assert.Equal(t, 2, m.SampleSize)
	assert.Equal(t, 0.0, m.OverallStability)
	assert.Equal(t, domain.ConfidenceInterval{}, m.ConfidenceInterval)
	assert.False(t, m.MeetsThreshold)
}

func TestIdenticalResultsAreStable(t *testing.T) {
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	results := []domain.TestExecutionResult{
		result("a", 1, decisionText, decisionText),
		result("b", 1, decisionText, decisionText, decisionText),
	}

	m, points := a.AnalyzeDetailed(context.Background(), results)
	require.Equal(t, domain.AnalysisOK, m.Status)
	assert.InDelta(t, 1.0, m.OverallStability, 0.01)
	assert.Equal(t, 1.0, m.DecisionConsistency)
	assert.GreaterOrEqual(t, m.ConfidenceInterval.Low, 0.99)
	assert.True(t, m.ConfidenceInterval.Contains(1))
	assert.True(t, m.MeetsThreshold)
	assert.Equal(t, 2, m.SampleSize)
	assert.Equal(t, 6, m.DecisionPointCount)
	assert.Len(t, points, 6)
	assert.Nil(t, m.Trend)

	for _, p := range points {
		for _, v := range p.TransformedValues {
			assert.Equal(t, p.OriginalValue, v)
		}
	}
}

func TestExtractDecisionPoints(t *testing.T) {
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	points := a.ExtractDecisionPoints(decisionText, "doc")

	require.Len(t, points, 3)
	assert.Equal(t, domain.DecisionQuantitative, points[0].DecisionType)
	assert.Equal(t, "doc-quantitative-0", points[0].DecisionID)
	assert.Equal(t, 0.9, points[0].Confidence)
	assert.Equal(t, domain.DecisionConclusion, points[1].DecisionType)
	assert.Equal(t, 0.8, points[1].Confidence)
	assert.Equal(t, domain.DecisionRecommendation, points[2].DecisionType)
	assert.Equal(t, 0.7, points[2].Confidence)
	assert.Equal(t, "Therefore, we should expand the team.", points[2].OriginalValue)

	assert.Empty(t, a.ExtractDecisionPoints("Nothing to see here.", "doc"))
}

func TestCustomDecisionKeywords(t *testing.T) {
	config := domain.DefaultStabilityAnalysisConfig()
	config.DecisionKeywords = []string{"  Bottom LINE "}
	a := newAnalyzer(t, config)

	points := a.ExtractDecisionPoints("The bottom line is simple. Therefore we wait.", "doc")
	require.Len(t, points, 1)
	assert.Equal(t, domain.DecisionConclusion, points[0].DecisionType)
	assert.Equal(t, "The bottom line is simple.", points[0].OriginalValue)
}

func TestMatching(t *testing.T) {
	original := "Therefore, we should expand the team into three new regions."
	similar := "Therefore, we should expand the group into three new regions."
	unrelated := "Therefore, costs must fall."

	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	m, points := a.AnalyzeDetailed(context.Background(), []domain.TestExecutionResult{
		result("similar", 0.8, original, similar),
		result("unrelated", 0.8, original, unrelated),
	})
	require.Equal(t, domain.AnalysisOK, m.Status)
	require.Len(t, points, 4)

	for _, p := range points[:2] {
		assert.Equal(t, []string{similar}, p.TransformedValues)
		assert.InDelta(t, 9.0/11.0, p.StabilityScore, 1e-9)
		assert.Equal(t, 1, p.Metadata["matches"])
	}
	for _, p := range points[2:] {
		assert.Empty(t, p.TransformedValues, "dissimilar points do not match")
		assert.Equal(t, 1.0, p.StabilityScore)
	}
	assert.InDelta(t, (2*9.0/11.0+2)/4, m.DecisionConsistency, 1e-9)
	assert.Equal(t, 0.0, m.ConclusionStability)
}

func TestSubScores(t *testing.T) {
	original := "The data shows significant growth.\n\nTherefore, we recommend more investment in security."
	merged := "The data shows growth. Therefore, we advise more investment."

	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	m := a.AnalyzeStability(context.Background(), []domain.TestExecutionResult{
		result("a", 0.5, original, merged),
		result("b", 0.5, original, original),
	})
	require.Equal(t, domain.AnalysisOK, m.Status)

	// Key terms: data, significant, growth, therefore, recommend, security.
	assert.InDelta(t, (3.0/6.0+1)/2, m.KeyTermPreservation, 1e-9)
	// Paragraph ratio 1/2 with equal sentence counts for the merged variant.
	assert.InDelta(t, (0.75+1)/2, m.StructuralStability, 1e-9)
	assert.InDelta(t, 0.5, m.ConclusionStability, 1e-9)

	want := 0.4*m.DecisionConsistency + 0.3*m.ConclusionStability + 0.2*m.KeyTermPreservation + 0.1*m.StructuralStability
	assert.InDelta(t, want, m.OverallStability, 1e-9)
	assert.False(t, m.MeetsThreshold)
}

func TestStatisticalAnalysisDisabled(t *testing.T) {
	config := domain.DefaultStabilityAnalysisConfig()
	config.EnableStatisticalAnalysis = false
	a := newAnalyzer(t, config)

	m := a.AnalyzeStability(context.Background(), []domain.TestExecutionResult{
		result("a", 1, decisionText, decisionText),
		result("b", 1, decisionText, decisionText),
	})
	assert.Equal(t, domain.ConfidenceInterval{Low: 0, High: 1}, m.ConfidenceInterval)
}

func TestInterval(t *testing.T) {
	assert.Equal(t, domain.ConfidenceInterval{Low: 0, High: 1}, Interval([]float64{0.5}, 0.95))
	assert.Equal(t, domain.ConfidenceInterval{Low: 0.5, High: 0.5}, Interval([]float64{0.5, 0.5, 0.5}, 0.95))

	ci := Interval([]float64{0.6, 0.8, 0.6, 0.8}, 0.95)
	// mean 0.7, sample stdev 0.11547, margin 1.96 * 0.11547 / 2.
	assert.InDelta(t, 0.7-0.11316, ci.Low, 1e-4)
	assert.InDelta(t, 0.7+0.11316, ci.High, 1e-4)

	wider := Interval([]float64{0.6, 0.8, 0.6, 0.8}, 0.99)
	assert.Less(t, wider.Low, ci.Low)

	clipped := Interval([]float64{0, 1, 1, 1}, 0.99)
	assert.Equal(t, 1.0, clipped.High)
}

func TestTrend(t *testing.T) {
	config := domain.DefaultStabilityAnalysisConfig()
	config.EnableTrendAnalysis = true
	a := newAnalyzer(t, config)

	var results []domain.TestExecutionResult
	for i, score := range []float64{0.9, 0.5, 0.7} {
		r := result(fmt.Sprintf("run-%d", i), score, decisionText, decisionText)
		r.Timestamp = epoch.Add(time.Duration(score*10) * time.Minute)
		results = append(results, r)
	}
	m := a.AnalyzeStability(context.Background(), results)
	require.NotNil(t, m.Trend)
	assert.InDelta(t, 0.2, m.Trend.Slope, 1e-9)
	assert.InDelta(t, 0.5, m.Trend.Intercept, 1e-9)
	assert.Equal(t, domain.TrendImproving, m.Trend.Direction)

	flat := Trend([]domain.TestExecutionResult{result("x", 0.5, ""), result("y", 0.5, "")})
	assert.Equal(t, domain.TrendStable, flat.Direction)
	assert.Nil(t, Trend(results[:1]))
}

func TestFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	m := a.AnalyzeStability(ctx, []domain.TestExecutionResult{
		result("a", 1, decisionText, decisionText),
		result("b", 1, decisionText, decisionText),
	})
	assert.Equal(t, domain.AnalysisFailed, m.Status)
	assert.Equal(t, context.Canceled.Error(), m.Error)

	broken, err := NewAnalyzer(domain.DefaultStabilityAnalysisConfig(), logger.NewNopLogger(), panickingNormalizer{})
	require.NoError(t, err)
	m = broken.AnalyzeStability(context.Background(), []domain.TestExecutionResult{
		result("a", 1, decisionText, decisionText),
		result("b", 1, decisionText, decisionText),
	})
	assert.Equal(t, domain.AnalysisFailed, m.Status)
	assert.Equal(t, "normalizer exploded", m.Error)
	assert.Equal(t, 0.0, m.OverallStability)

	config := domain.DefaultStabilityAnalysisConfig()
	config.ConfidenceLevel = 1
	_, err = NewAnalyzer(config, logger.NewNopLogger(), normalizer.NewDefaultNormalizer())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestMetricsAreBounded(t *testing.T) {
	a := newAnalyzer(t, domain.DefaultStabilityAnalysisConfig())
	sentence := rapid.StringMatching(`[A-Z][a-z]{0,6}( (therefore|should|12%|risk|data|[a-z]{1,6})){1,8}[.!?]`)
	doc := rapid.Custom(func(t *rapid.T) string {
		parts := rapid.SliceOfN(sentence, 1, 6).Draw(t, "sentences")
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += rapid.SampledFrom([]string{" ", "\n\n"}).Draw(t, "sep")
			}
			out += p
		}
		return out
	})

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 4).Draw(t, "tests")
		results := make([]domain.TestExecutionResult, n)
		for i := range results {
			results[i] = result(fmt.Sprintf("t%d", i), rapid.Float64Range(0, 1).Draw(t, "score"),
				doc.Draw(t, "original"), doc.Draw(t, "transformed"))
		}
		m := a.AnalyzeStability(context.Background(), results)
		if m.Status != domain.AnalysisOK {
			t.Fatalf("status %s: %s", m.Status, m.Error)
		}
		for name, v := range map[string]float64{
			"decision":   m.DecisionConsistency,
			"conclusion": m.ConclusionStability,
			"key_terms":  m.KeyTermPreservation,
			"structural": m.StructuralStability,
			"overall":    m.OverallStability,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s = %v out of range", name, v)
			}
		}
		ci := m.ConfidenceInterval
		if ci.Low < 0 || ci.High > 1 || ci.Low > ci.High {
			t.Fatalf("bad interval %+v", ci)
		}
	})
}
