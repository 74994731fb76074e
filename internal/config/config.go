// Package config loads the pipeline configuration from an optional YAML file
// and ROBUSTNESS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/baditaflorin/go_robustness/internal/adapters/embedding"
	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/validation"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: ROBUSTNESS_TRANSFORMATION__RANDOM_SEED=7.
const EnvPrefix = "ROBUSTNESS_"

// SchemaVersion is the only supported schema_version.
const SchemaVersion = "v1"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string        `koanf:"addr"`
	ReadTimeout      time.Duration `koanf:"read_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
	MaxRequestBody   int           `koanf:"max_request_body"`
	BatchConcurrency int           `koanf:"batch_concurrency"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Output string `koanf:"output"` // stdout, stderr or a file path
	JSON   bool   `koanf:"json"`
	Async  bool   `koanf:"async"`
}

// LexiconConfig points at an optional YAML synonym database.
type LexiconConfig struct {
	Path     string `koanf:"path"`
	Fallback bool   `koanf:"fallback"`
}

// LengthCheckConfig enables the optional length drift validator.
type LengthCheckConfig struct {
	Enabled bool    `koanf:"enabled"`
	Weight  float64 `koanf:"weight"`

	validation.LengthConfig `koanf:",squash"`
}

// Config is the complete service configuration.
type Config struct {
	SchemaVersion  string                         `koanf:"schema_version"`
	Transformation domain.TransformationConfig    `koanf:"transformation"`
	Validation     domain.ValidationConfig        `koanf:"validation"`
	Robustness     domain.RobustnessTestConfig    `koanf:"robustness"`
	Stability      domain.StabilityAnalysisConfig `koanf:"stability"`
	Server         ServerConfig                   `koanf:"server"`
	Logging        LoggingConfig                  `koanf:"logging"`
	Embedding      embedding.Config               `koanf:"embedding"`
	Lexicon        LexiconConfig                  `koanf:"lexicon"`
	LengthCheck    LengthCheckConfig              `koanf:"length_check"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	robustness := domain.DefaultRobustnessTestConfig()
	return Config{
		SchemaVersion:  SchemaVersion,
		Transformation: robustness.Transformation,
		Validation:     domain.DefaultValidationConfig(),
		Robustness:     robustness,
		Stability:      domain.DefaultStabilityAnalysisConfig(),
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     30 * time.Second,
			MaxRequestBody:   4 * 1024 * 1024,
			BatchConcurrency: 4,
		},
		Logging: LoggingConfig{Output: "stdout", Async: true},
		Embedding: embedding.Config{
			Model: embedding.DefaultModel,
		},
		Lexicon:     LexiconConfig{Fallback: true},
		LengthCheck: LengthCheckConfig{LengthConfig: validation.DefaultLengthConfig()},
	}
}

// Load merges the YAML file at path (if present) with environment overrides
// on top of Default, then validates the result. A top-level transformation
// section takes precedence over robustness.transformation.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	if sv := k.String("schema_version"); sv != "" && sv != SchemaVersion {
		return Config{}, fmt.Errorf("schema_version %q not supported (want %s)", sv, SchemaVersion)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if k.Exists("transformation") {
		t := cfg.Robustness.Transformation
		if err := k.Unmarshal("transformation", &t); err != nil {
			return Config{}, fmt.Errorf("decoding transformation: %w", err)
		}
		cfg.Robustness.Transformation = t
	}
	cfg.Transformation = cfg.Robustness.Transformation
	cfg.SchemaVersion = SchemaVersion

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps ROBUSTNESS_STABILITY__MIN_SAMPLE_SIZE to stability.min_sample_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Robustness.Validate(); err != nil {
		return err
	}
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	if err := c.Stability.Validate(); err != nil {
		return err
	}
	if c.LengthCheck.Enabled {
		if err := c.LengthCheck.Validate(); err != nil {
			return err
		}
		if c.LengthCheck.Weight < 0 {
			return fmt.Errorf("%w: length_check.weight must not be negative", domain.ErrInvalidConfig)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", domain.ErrInvalidConfig)
	}
	if c.Server.BatchConcurrency < 1 {
		return fmt.Errorf("%w: server.batch_concurrency must be at least 1", domain.ErrInvalidConfig)
	}
	if c.Server.MaxRequestBody <= 0 {
		return fmt.Errorf("%w: server.max_request_body must be greater than 0", domain.ErrInvalidConfig)
	}
	return nil
}

// Writer opens the configured log destination.
func (c LoggingConfig) Writer() (io.Writer, error) {
	switch strings.ToLower(c.Output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
