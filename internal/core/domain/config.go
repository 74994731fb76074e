package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownTransformation is returned for a transformation kind outside the closed set.
	ErrUnknownTransformation = errors.New("unknown transformation type")
)

// TransformationConfig parameterises the strategies. It is shared by value and never mutated.
type TransformationConfig struct {
	RandomSeed                  int64   `koanf:"random_seed" json:"random_seed"`
	MaxSynonymReplacements      int     `koanf:"max_synonym_replacements" json:"max_synonym_replacements"`
	SynonymConfidenceThreshold  float64 `koanf:"synonym_confidence_threshold" json:"synonym_confidence_threshold"`
	ParagraphShuffleProbability float64 `koanf:"paragraph_shuffle_probability" json:"paragraph_shuffle_probability"`
	IrrelevantContentRatio      float64 `koanf:"irrelevant_content_ratio" json:"irrelevant_content_ratio"`
	PreserveKeyTerms            bool    `koanf:"preserve_key_terms" json:"preserve_key_terms"`
	EnablePerformanceTracking   bool    `koanf:"enable_performance_tracking" json:"enable_performance_tracking"`
}

// DefaultTransformationConfig returns the default strategy parameters.
func DefaultTransformationConfig() TransformationConfig {
	return TransformationConfig{
		RandomSeed:                  42,
		MaxSynonymReplacements:      5,
		SynonymConfidenceThreshold:  0.8,
		ParagraphShuffleProbability: 0.3,
		IrrelevantContentRatio:      0.2,
		PreserveKeyTerms:            true,
		EnablePerformanceTracking:   true,
	}
}

// Validate checks if the configuration is valid.
func (c TransformationConfig) Validate() error {
	if c.MaxSynonymReplacements < 0 {
		return fmt.Errorf("%w: transformation.max_synonym_replacements must not be negative", ErrInvalidConfig)
	}
	if err := checkUnit("transformation.synonym_confidence_threshold", c.SynonymConfidenceThreshold); err != nil {
		return err
	}
	if err := checkUnit("transformation.paragraph_shuffle_probability", c.ParagraphShuffleProbability); err != nil {
		return err
	}
	return checkUnit("transformation.irrelevant_content_ratio", c.IrrelevantContentRatio)
}

// ValidationConfig holds the validator thresholds.
type ValidationConfig struct {
	SemanticSimilarityThreshold        float64       `koanf:"semantic_similarity_threshold" json:"semantic_similarity_threshold"`
	KeyConclusionPreservationThreshold float64       `koanf:"key_conclusion_preservation_threshold" json:"key_conclusion_preservation_threshold"`
	StructuralIntegrityThreshold       float64       `koanf:"structural_integrity_threshold" json:"structural_integrity_threshold"`
	OverallValidationThreshold         float64       `koanf:"overall_validation_threshold" json:"overall_validation_threshold"`
	EnableDetailedAnalysis             bool          `koanf:"enable_detailed_analysis" json:"enable_detailed_analysis"`
	MaxValidationTime                  time.Duration `koanf:"max_validation_time" json:"max_validation_time"`
}

// DefaultValidationConfig returns the default validator thresholds.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		SemanticSimilarityThreshold:        0.8,
		KeyConclusionPreservationThreshold: 0.9,
		StructuralIntegrityThreshold:       0.7,
		OverallValidationThreshold:         0.75,
		EnableDetailedAnalysis:             true,
		MaxValidationTime:                  30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c ValidationConfig) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"validation.semantic_similarity_threshold", c.SemanticSimilarityThreshold},
		{"validation.key_conclusion_preservation_threshold", c.KeyConclusionPreservationThreshold},
		{"validation.structural_integrity_threshold", c.StructuralIntegrityThreshold},
		{"validation.overall_validation_threshold", c.OverallValidationThreshold},
	}
	for _, ch := range checks {
		if err := checkUnit(ch.name, ch.value); err != nil {
			return err
		}
	}
	if c.MaxValidationTime < 0 {
		return fmt.Errorf("%w: validation.max_validation_time must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RobustnessTestConfig holds the engine's success criteria and tracking flags.
type RobustnessTestConfig struct {
	TargetConsistencyScore    float64              `koanf:"target_consistency_score" json:"target_consistency_score"`
	MaxProcessingTime         time.Duration        `koanf:"max_processing_time" json:"max_processing_time"`
	EnablePerformanceTracking bool                 `koanf:"enable_performance_tracking" json:"enable_performance_tracking"`
	EnableValidation          bool                 `koanf:"enable_validation" json:"enable_validation"`
	Transformation            TransformationConfig `koanf:"transformation" json:"transformation"`
}

// DefaultRobustnessTestConfig returns the default engine configuration.
func DefaultRobustnessTestConfig() RobustnessTestConfig {
	return RobustnessTestConfig{
		TargetConsistencyScore:    0.95,
		MaxProcessingTime:         5 * time.Second,
		EnablePerformanceTracking: true,
		EnableValidation:          true,
		Transformation:            DefaultTransformationConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c RobustnessTestConfig) Validate() error {
	if err := checkUnit("robustness.target_consistency_score", c.TargetConsistencyScore); err != nil {
		return err
	}
	if c.MaxProcessingTime <= 0 {
		return fmt.Errorf("%w: robustness.max_processing_time must be greater than 0", ErrInvalidConfig)
	}
	return c.Transformation.Validate()
}

// StabilityAnalysisConfig parameterises the stability analyzer.
type StabilityAnalysisConfig struct {
	MinStabilityThreshold     float64  `koanf:"min_stability_threshold" json:"min_stability_threshold"`
	ConfidenceLevel           float64  `koanf:"confidence_level" json:"confidence_level"`
	MinSampleSize             int      `koanf:"min_sample_size" json:"min_sample_size"`
	EnableStatisticalAnalysis bool     `koanf:"enable_statistical_analysis" json:"enable_statistical_analysis"`
	EnableTrendAnalysis       bool     `koanf:"enable_trend_analysis" json:"enable_trend_analysis"`
	DecisionKeywords          []string `koanf:"decision_keywords" json:"decision_keywords"`
}

// DefaultStabilityAnalysisConfig returns the default analyzer configuration.
// DecisionKeywords is left empty, which selects the built-in conclusion markers.
func DefaultStabilityAnalysisConfig() StabilityAnalysisConfig {
	return StabilityAnalysisConfig{
		MinStabilityThreshold:     0.9,
		ConfidenceLevel:           0.95,
		MinSampleSize:             2,
		EnableStatisticalAnalysis: true,
		EnableTrendAnalysis:       false,
	}
}

// Validate checks if the configuration is valid.
func (c StabilityAnalysisConfig) Validate() error {
	if err := checkUnit("stability.min_stability_threshold", c.MinStabilityThreshold); err != nil {
		return err
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("%w: stability.confidence_level must be strictly between 0 and 1", ErrInvalidConfig)
	}
	if c.MinSampleSize < 1 {
		return fmt.Errorf("%w: stability.min_sample_size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func checkUnit(name string, v float64) error {
	if v != v || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be between 0 and 1", ErrInvalidConfig, name)
	}
	return nil
}
