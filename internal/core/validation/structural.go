package validation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// StructuralName identifies the structural integrity validator.
const StructuralName = "structural_integrity"

const (
	paragraphWeight = 0.4
	sentenceWeight  = 0.4
	coherenceWeight = 0.2

	coherenceBase = 0.7
	coherenceStep = 0.1

	structuralConfidence = 0.8
)

// StructuralValidator compares the paragraph and sentence shape of two texts.
type StructuralValidator struct {
	config      domain.ValidationConfig
	logger      ports.Logger
	normalizer  ports.Normalizer
	transitions []string
}

// NewStructuralValidator creates a structural integrity validator.
func NewStructuralValidator(config domain.ValidationConfig, logger ports.Logger, normalizer ports.Normalizer) (*StructuralValidator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if normalizer == nil {
		return nil, errors.New("structural validator requires a normalizer")
	}
	return &StructuralValidator{
		config:      config,
		logger:      logger,
		normalizer:  normalizer,
		transitions: text.TransitionalPhrases(),
	}, nil
}

func (s *StructuralValidator) Name() string { return StructuralName }

func (s *StructuralValidator) Threshold() float64 { return s.config.StructuralIntegrityThreshold }

// Validate scores 0.4 x paragraph shape + 0.4 x sentence shape + 0.2 x coherence.
func (s *StructuralValidator) Validate(ctx context.Context, original, transformed string, _ domain.TransformationResult) domain.ValidationResult {
	start := time.Now()
	details := make(map[string]interface{})

	select {
	case <-ctx.Done():
		s.logger.Error("Structural validation cancelled", "error", ctx.Err())
		details["error"] = "validation cancelled"
		return domain.NewValidationResult(StructuralName, 0, s.Threshold(), details, 0, time.Since(start))
	default:
	}

	origParagraphs, transParagraphs := text.Paragraphs(original), text.Paragraphs(transformed)
	origSentences, transSentences := text.Sentences(original), text.Sentences(transformed)

	paragraphs := shapeScore(origParagraphs, transParagraphs)
	sentences := shapeScore(origSentences, transSentences)
	coherence, transitions := s.coherence(transSentences)

	score := paragraphWeight*paragraphs + sentenceWeight*sentences + coherenceWeight*coherence

	details["paragraph_score"] = paragraphs
	details["sentence_score"] = sentences
	details["coherence_score"] = coherence
	if s.config.EnableDetailedAnalysis {
		details["original_paragraphs"] = len(origParagraphs)
		details["transformed_paragraphs"] = len(transParagraphs)
		details["original_sentences"] = len(origSentences)
		details["transformed_sentences"] = len(transSentences)
		details["transitional_sentences"] = transitions
	}

	s.logger.Debug("Computed structural integrity",
		"score", score,
		"paragraphs", paragraphs,
		"sentences", sentences,
		"coherence", coherence,
	)

	return domain.NewValidationResult(StructuralName, score, s.Threshold(), details, structuralConfidence, time.Since(start))
}

// coherence starts at 0.7 and adds 0.1 for every sentence after the first
// that opens or contains a transitional phrase.
func (s *StructuralValidator) coherence(sentences []string) (float64, int) {
	found := 0
	for i := 1; i < len(sentences); i++ {
		if text.HasPhrase(s.normalizer.Normalize(sentences[i]), s.transitions) {
			found++
		}
	}
	return math.Min(coherenceBase+coherenceStep*float64(found), 1), found
}

// shapeScore averages the count ratio and the mean word-length ratio of two segmentations.
func shapeScore(original, transformed []string) float64 {
	count := text.LengthRatio(float64(len(original)), float64(len(transformed)))
	length := text.LengthRatio(meanWords(original), meanWords(transformed))
	return (count + length) / 2
}

func meanWords(segments []string) float64 {
	if len(segments) == 0 {
		return 0
	}
	total := 0
	for _, s := range segments {
		total += text.WordCount(s)
	}
	return float64(total) / float64(len(segments))
}
