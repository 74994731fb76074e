package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// LengthName identifies the length drift validator.
const LengthName = "length_drift"

// LengthUnit selects what the length drift validator counts.
type LengthUnit string

const (
	WordUnit      LengthUnit = "words"
	CharacterUnit LengthUnit = "characters"
)

// LengthConfig holds configuration for the length drift validator.
type LengthConfig struct {
	Threshold    float64    `koanf:"threshold" json:"threshold"`
	MaxDiffRatio float64    `koanf:"max_diff_ratio" json:"max_diff_ratio"`
	Unit         LengthUnit `koanf:"unit" json:"unit"`
}

// DefaultLengthConfig returns a default configuration.
func DefaultLengthConfig() LengthConfig {
	return LengthConfig{
		Threshold:    0.7,
		MaxDiffRatio: 0.3,
		Unit:         WordUnit,
	}
}

// Validate checks if the configuration is valid.
func (c LengthConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: length threshold must be between 0 and 1", domain.ErrInvalidConfig)
	}
	if c.MaxDiffRatio <= 0 {
		return fmt.Errorf("%w: length max_diff_ratio must be greater than 0", domain.ErrInvalidConfig)
	}
	if c.Unit != WordUnit && c.Unit != CharacterUnit {
		return fmt.Errorf("%w: length unit %q must be %q or %q", domain.ErrInvalidConfig, c.Unit, WordUnit, CharacterUnit)
	}
	return nil
}

// LengthValidator measures how far a transformation moved the text length:
//
//	score = 1 - min(1, |original - transformed| / (original * MaxDiffRatio))
//
// Content injection grows a text by design, so this check is usually
// registered with weight 0 and reported without affecting the overall score.
type LengthValidator struct {
	config     LengthConfig
	logger     ports.Logger
	normalizer ports.Normalizer
}

// NewLengthValidator creates a length drift validator.
func NewLengthValidator(config LengthConfig, logger ports.Logger, normalizer ports.Normalizer) (*LengthValidator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if normalizer == nil {
		return nil, fmt.Errorf("length validator requires a normalizer")
	}
	return &LengthValidator{config: config, logger: logger, normalizer: normalizer}, nil
}

func (v *LengthValidator) Name() string { return LengthName }

func (v *LengthValidator) Threshold() float64 { return v.config.Threshold }

// Validate computes the length drift between original and transformed.
func (v *LengthValidator) Validate(ctx context.Context, original, transformed string, _ domain.TransformationResult) domain.ValidationResult {
	start := time.Now()
	details := map[string]interface{}{"unit": string(v.config.Unit)}

	select {
	case <-ctx.Done():
		v.logger.Error("Length validation cancelled", "error", ctx.Err())
		details["error"] = "validation cancelled"
		return domain.NewValidationResult(LengthName, 0, v.Threshold(), details, 0, time.Since(start))
	default:
	}

	origLen := v.count(original)
	transLen := v.count(transformed)
	details["original_length"] = origLen
	details["transformed_length"] = transLen

	if origLen == 0 {
		details["error"] = "original text is empty"
		return domain.NewValidationResult(LengthName, 0, v.Threshold(), details, 0, time.Since(start))
	}

	diff := math.Abs(float64(origLen - transLen))
	diffRatio := math.Min(diff/(float64(origLen)*v.config.MaxDiffRatio), 1)
	score := 1 - diffRatio

	details["length_ratio"] = math.Min(float64(origLen), float64(transLen)) / math.Max(float64(origLen), float64(transLen))
	details["max_diff_ratio"] = v.config.MaxDiffRatio

	v.logger.Debug("Computed length drift",
		"score", score,
		"original_length", origLen,
		"transformed_length", transLen,
	)

	return domain.NewValidationResult(LengthName, score, v.Threshold(), details, 1, time.Since(start))
}

// count measures normalized text in the configured unit.
func (v *LengthValidator) count(s string) int {
	normalized := v.normalizer.Normalize(s)
	if v.config.Unit == CharacterUnit {
		return utf8.RuneCountInString(normalized)
	}
	return len(strings.Fields(normalized))
}
