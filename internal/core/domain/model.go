package domain

import (
	"fmt"
	"time"
)

// TransformationType is the closed set of meaning-preserving perturbations.
type TransformationType int

const (
	SynonymReplacement TransformationType = iota
	ParagraphReordering
	IrrelevantContentInjection
)

// TransformationTypes lists every kind in registration order.
func TransformationTypes() []TransformationType {
	return []TransformationType{SynonymReplacement, ParagraphReordering, IrrelevantContentInjection}
}

func (t TransformationType) String() string {
	switch t {
	case SynonymReplacement:
		return "synonym_replacement"
	case ParagraphReordering:
		return "paragraph_reordering"
	case IrrelevantContentInjection:
		return "irrelevant_content_injection"
	}
	return fmt.Sprintf("transformation(%d)", int(t))
}

// MarshalText encodes the type by name so JSON consumers see the canonical string.
func (t TransformationType) MarshalText() ([]byte, error) {
	switch t {
	case SynonymReplacement, ParagraphReordering, IrrelevantContentInjection:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTransformation, int(t))
}

// UnmarshalText decodes a canonical transformation name.
func (t *TransformationType) UnmarshalText(b []byte) error {
	parsed, err := ParseTransformationType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTransformationType maps a canonical name back to its kind.
func ParseTransformationType(name string) (TransformationType, error) {
	for _, t := range TransformationTypes() {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransformation, name)
}

// ResultStatus separates clean results from degraded and failed ones.
type ResultStatus string

const (
	StatusOK       ResultStatus = "ok"
	StatusDegraded ResultStatus = "degraded"
	StatusFatal    ResultStatus = "fatal"
)

// TransformationResult is produced once per strategy invocation and is not mutated afterwards.
type TransformationResult struct {
	OriginalText       string                 `json:"original_text"`
	TransformedText    string                 `json:"transformed_text"`
	TransformationType TransformationType     `json:"transformation_type"`
	ChangesMade        []string               `json:"changes_made"`
	ConfidenceScore    float64                `json:"confidence_score"`
	ProcessingTime     time.Duration          `json:"processing_time"`
	Status             ResultStatus           `json:"status"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// ValidationResult holds the outcome of one validator.
// Passed is always derived from Score and Threshold; build values with NewValidationResult.
type ValidationResult struct {
	ValidationType string                 `json:"validation_type"`
	Score          float64                `json:"score"`
	Threshold      float64                `json:"threshold"`
	Passed         bool                   `json:"passed"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Confidence     float64                `json:"confidence"`
	ProcessingTime time.Duration          `json:"processing_time"`
}

// NewValidationResult clamps the scores and computes Passed.
func NewValidationResult(validationType string, score, threshold float64, details map[string]interface{}, confidence float64, elapsed time.Duration) ValidationResult {
	score = Clamp01(score)
	threshold = Clamp01(threshold)
	if details == nil {
		details = make(map[string]interface{})
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return ValidationResult{
		ValidationType: validationType,
		Score:          score,
		Threshold:      threshold,
		Passed:         score >= threshold,
		Details:        details,
		Confidence:     Clamp01(confidence),
		ProcessingTime: elapsed,
	}
}

// TransformationValidation groups the validator results for one transformation.
type TransformationValidation struct {
	TransformationType TransformationType          `json:"transformation_type"`
	Results            map[string]ValidationResult `json:"results"`
	OverallScore       float64                     `json:"overall_score"`
	Passed             bool                        `json:"passed"`
}

// PerformanceMetrics aggregates timings over the transformations of one test.
type PerformanceMetrics struct {
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	MeanProcessingTime  time.Duration `json:"mean_processing_time"`
	MaxProcessingTime   time.Duration `json:"max_processing_time"`
	MinProcessingTime   time.Duration `json:"min_processing_time"`
	TransformationCount int           `json:"transformation_count"`
	StrategiesApplied   int           `json:"strategies_applied"`
	StrategiesSkipped   int           `json:"strategies_skipped"`
	StrategiesFailed    int           `json:"strategies_failed"`
	TextLength          int           `json:"text_length"`
}

// TestExecutionResult is created once per engine invocation and stored by TestID.
type TestExecutionResult struct {
	TestID                string                     `json:"test_id"`
	Timestamp             time.Time                  `json:"timestamp"`
	OriginalText          string                     `json:"original_text"`
	TransformationResults []TransformationResult     `json:"transformation_results"`
	ConsistencyScore      float64                    `json:"consistency_score"`
	PerformanceMetrics    PerformanceMetrics         `json:"performance_metrics"`
	ValidationResults     []TransformationValidation `json:"validation_results,omitempty"`
	SuccessCriteriaMet    bool                       `json:"success_criteria_met"`
	ExecutionTime         time.Duration              `json:"execution_time"`
	Metadata              map[string]interface{}     `json:"metadata,omitempty"`
}

// Failed reports whether the engine degraded this result after an internal failure.
func (r TestExecutionResult) Failed() bool {
	_, ok := r.Metadata["error"]
	return ok
}

// TestSummary aggregates every result held by an engine registry.
type TestSummary struct {
	TotalTests           int     `json:"total_tests"`
	PassedTests          int     `json:"passed_tests"`
	FailedTests          int     `json:"failed_tests"`
	SuccessRate          float64 `json:"success_rate"`
	MeanConsistency      float64 `json:"mean_consistency"`
	MinConsistency       float64 `json:"min_consistency"`
	MaxConsistency       float64 `json:"max_consistency"`
	TotalTransformations int     `json:"total_transformations"`
}

// DecisionType classifies an extracted unit of meaning.
type DecisionType string

const (
	DecisionConclusion     DecisionType = "conclusion"
	DecisionRecommendation DecisionType = "recommendation"
	DecisionQuantitative   DecisionType = "quantitative"
)

// DecisionPoint tracks one decision across the transformed variants of a text.
type DecisionPoint struct {
	DecisionID        string                 `json:"decision_id"`
	DecisionType      DecisionType           `json:"decision_type"`
	OriginalValue     string                 `json:"original_value"`
	TransformedValues []string               `json:"transformed_values"`
	StabilityScore    float64                `json:"stability_score"`
	Confidence        float64                `json:"confidence"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// AnalysisStatus distinguishes an analysed sample from one that could not be analysed.
type AnalysisStatus string

const (
	AnalysisOK                 AnalysisStatus = "ok"
	AnalysisInsufficientSample AnalysisStatus = "insufficient_sample"
	AnalysisNoUsableResults    AnalysisStatus = "no_usable_results"
	AnalysisFailed             AnalysisStatus = "failed"
)

// ConfidenceInterval is a closed [Low, High] bound inside [0,1].
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether v lies inside the interval.
func (ci ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Low && v <= ci.High
}

// TrendDirection summarises the slope of consistency over time.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDegrading TrendDirection = "degrading"
)

// TrendAnalysis is a least-squares fit of consistency score against run order.
type TrendAnalysis struct {
	Slope     float64        `json:"slope"`
	Intercept float64        `json:"intercept"`
	Direction TrendDirection `json:"direction"`
}

// StabilityMetrics is produced once per analysis call.
type StabilityMetrics struct {
	DecisionConsistency float64            `json:"decision_consistency"`
	ConclusionStability float64            `json:"conclusion_stability"`
	KeyTermPreservation float64            `json:"key_term_preservation"`
	StructuralStability float64            `json:"structural_stability"`
	OverallStability    float64            `json:"overall_stability"`
	ConfidenceInterval  ConfidenceInterval `json:"confidence_interval"`
	SampleSize          int                `json:"sample_size"`
	MeetsThreshold      bool               `json:"meets_threshold"`
	DecisionPointCount  int                `json:"decision_point_count"`
	Trend               *TrendAnalysis     `json:"trend,omitempty"`
	Status              AnalysisStatus     `json:"status"`
	Error               string             `json:"error,omitempty"`
}

// Clamp01 bounds v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
