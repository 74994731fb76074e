package stability

import (
	"fmt"
	"strings"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
)

// MatchThreshold is the word-set Jaccard similarity a transformed decision
// point must exceed to match an original one.
const MatchThreshold = 0.6

var baseConfidence = map[domain.DecisionType]float64{
	domain.DecisionConclusion:     0.8,
	domain.DecisionRecommendation: 0.7,
	domain.DecisionQuantitative:   0.9,
}

// ExtractDecisionPoints finds the conclusions, recommendations and
// quantitative statements of s. A sentence may yield one point per kind.
func (a *Analyzer) ExtractDecisionPoints(s, idPrefix string) []domain.DecisionPoint {
	points := []domain.DecisionPoint{}
	for i, sentence := range text.Sentences(s) {
		normalized := text.Canonical(a.normalizer.Normalize(sentence))
		var kinds []domain.DecisionType
		if text.HasPhrase(normalized, a.markers) {
			kinds = append(kinds, domain.DecisionConclusion)
		}
		if text.HasPhrase(normalized, a.recommendations) {
			kinds = append(kinds, domain.DecisionRecommendation)
		}
		if text.IsQuantitative(sentence) {
			kinds = append(kinds, domain.DecisionQuantitative)
		}
		for _, kind := range kinds {
			points = append(points, domain.DecisionPoint{
				DecisionID:        fmt.Sprintf("%s-%s-%d", idPrefix, kind, i),
				DecisionType:      kind,
				OriginalValue:     sentence,
				TransformedValues: []string{},
				Confidence:        baseConfidence[kind],
				Metadata:          map[string]interface{}{"sentence_index": i},
			})
		}
	}
	return points
}

// tracker accumulates the matches of one original decision point.
type tracker struct {
	point        domain.DecisionPoint
	normalized   string
	similarities []float64
}

func (a *Analyzer) newTrackers(points []domain.DecisionPoint) []*tracker {
	out := make([]*tracker, len(points))
	for i, p := range points {
		out[i] = &tracker{point: p, normalized: a.normalizer.Normalize(p.OriginalValue)}
	}
	return out
}

// match appends each transformed point to the most similar original point of
// the same kind whose similarity exceeds MatchThreshold.
func (a *Analyzer) match(originals []*tracker, transformed []domain.DecisionPoint) {
	for _, tp := range transformed {
		normalized := a.normalizer.Normalize(tp.OriginalValue)
		var (
			best    *tracker
			bestSim float64
		)
		for _, o := range originals {
			if o.point.DecisionType != tp.DecisionType {
				continue
			}
			if sim := text.WordJaccard(o.normalized, normalized); sim > MatchThreshold && sim > bestSim {
				best, bestSim = o, sim
			}
		}
		if best != nil {
			best.point.TransformedValues = append(best.point.TransformedValues, tp.OriginalValue)
			best.similarities = append(best.similarities, bestSim)
		}
	}
}

// finish computes the stability score: the mean match similarity, or 1 when
// nothing matched.
func (t *tracker) finish() domain.DecisionPoint {
	p := t.point
	p.StabilityScore = 1
	if len(t.similarities) > 0 {
		p.StabilityScore = mean(t.similarities, 1)
	}
	p.Metadata["matches"] = len(t.similarities)
	return p
}

func normalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.Join(strings.Fields(strings.ToLower(m)), " "); m != "" {
			out = append(out, m)
		}
	}
	return out
}
