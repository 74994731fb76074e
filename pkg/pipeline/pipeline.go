// Package pipeline is the public entry point to the robustness and stability
// pipeline: run robustness tests, validate transformations and analyze the
// stability of accumulated results.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/baditaflorin/go_robustness/internal/adapters/embedding"
	"github.com/baditaflorin/go_robustness/internal/adapters/logger"
	"github.com/baditaflorin/go_robustness/internal/adapters/metrics"
	"github.com/baditaflorin/go_robustness/internal/adapters/normalizer"
	"github.com/baditaflorin/go_robustness/internal/adapters/synonym"
	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/engine"
	"github.com/baditaflorin/go_robustness/internal/core/stability"
	"github.com/baditaflorin/go_robustness/internal/core/transform"
	"github.com/baditaflorin/go_robustness/internal/core/validation"
	"github.com/baditaflorin/go_robustness/internal/ports"
	"github.com/baditaflorin/go_robustness/internal/warmup"
	"github.com/baditaflorin/l"
)

// Public aliases of the pipeline data model.
type (
	TransformationConfig     = domain.TransformationConfig
	ValidationConfig         = domain.ValidationConfig
	RobustnessTestConfig     = domain.RobustnessTestConfig
	StabilityAnalysisConfig  = domain.StabilityAnalysisConfig
	TransformationType       = domain.TransformationType
	TransformationResult     = domain.TransformationResult
	ValidationResult         = domain.ValidationResult
	TransformationValidation = domain.TransformationValidation
	TestExecutionResult      = domain.TestExecutionResult
	TestSummary              = domain.TestSummary
	DecisionPoint            = domain.DecisionPoint
	StabilityMetrics         = domain.StabilityMetrics
	WarmupConfig             = warmup.WarmupConfig
	LengthConfig             = validation.LengthConfig
	WarmupStats              = warmup.Stats

	Logger          = ports.Logger
	Normalizer      = ports.Normalizer
	SynonymProvider = ports.SynonymProvider
	Embedder        = ports.Embedder
	MetricsRecorder = ports.MetricsRecorder
	Strategy        = ports.Strategy
)

// Transformation kinds.
const (
	SynonymReplacement         = domain.SynonymReplacement
	ParagraphReordering        = domain.ParagraphReordering
	IrrelevantContentInjection = domain.IrrelevantContentInjection
)

// Defaults, re-exported for callers that tweak a single field.
var (
	DefaultTransformationConfig    = domain.DefaultTransformationConfig
	DefaultValidationConfig        = domain.DefaultValidationConfig
	DefaultRobustnessTestConfig    = domain.DefaultRobustnessTestConfig
	DefaultStabilityAnalysisConfig = domain.DefaultStabilityAnalysisConfig
	DefaultWarmupConfig            = warmup.DefaultWarmupConfig
	DefaultLengthConfig            = validation.DefaultLengthConfig
)

// BatchInput is one text of a batch run.
type BatchInput struct {
	TestID            string   `json:"test_id,omitempty"`
	Text              string   `json:"text"`
	TargetConclusions []string `json:"target_conclusions,omitempty"`
}

// Option defines a functional option for configuring a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	Robustness       RobustnessTestConfig
	Validation       ValidationConfig
	Stability        StabilityAnalysisConfig
	Logger           ports.Logger
	Normalizer       ports.Normalizer
	SynonymProvider  ports.SynonymProvider
	LexiconPath      string
	Embedder         ports.Embedder
	OpenAI           *embedding.Config
	LengthCheck      *LengthConfig
	LengthWeight     float64
	Metrics          ports.MetricsRecorder
	Registerer       prometheus.Registerer
	BatchConcurrency int
	Clock            func() time.Time
	WarmUp           bool
	WarmUpConfig     WarmupConfig
}

// WithRobustnessConfig replaces the engine configuration, including its transformation section.
func WithRobustnessConfig(c RobustnessTestConfig) Option {
	return func(cfg *pipelineConfig) {
		cfg.Robustness = c
	}
}

// WithTransformationConfig replaces the strategy parameters.
func WithTransformationConfig(c TransformationConfig) Option {
	return func(cfg *pipelineConfig) {
		cfg.Robustness.Transformation = c
	}
}

// WithSeed sets the random seed of every strategy.
func WithSeed(seed int64) Option {
	return func(cfg *pipelineConfig) {
		cfg.Robustness.Transformation.RandomSeed = seed
	}
}

// WithValidationConfig replaces the validator thresholds.
func WithValidationConfig(c ValidationConfig) Option {
	return func(cfg *pipelineConfig) {
		cfg.Validation = c
	}
}

// WithStabilityConfig replaces the stability analyzer configuration.
func WithStabilityConfig(c StabilityAnalysisConfig) Option {
	return func(cfg *pipelineConfig) {
		cfg.Stability = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg l.Logger) Option {
	return func(cfg *pipelineConfig) {
		cfg.Logger = logger.FromExisting(lg)
	}
}

// WithCoreLogger sets a logger that already implements the pipeline Logger interface.
func WithCoreLogger(lg Logger) Option {
	return func(cfg *pipelineConfig) {
		cfg.Logger = lg
	}
}

// WithSilentLogger discards all log output.
func WithSilentLogger() Option {
	return func(cfg *pipelineConfig) {
		cfg.Logger = logger.NewNopLogger()
	}
}

// WithNormalizer sets a custom normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(cfg *pipelineConfig) {
		cfg.Normalizer = n
	}
}

// WithPooledNormalizer selects the buffer-pooling normalizer.
func WithPooledNormalizer() Option {
	return func(cfg *pipelineConfig) {
		cfg.Normalizer = normalizer.NewPooledNormalizer()
	}
}

// WithSynonymProvider sets the synonym source of the synonym replacement strategy.
func WithSynonymProvider(p SynonymProvider) Option {
	return func(cfg *pipelineConfig) {
		cfg.SynonymProvider = p
	}
}

// WithLexicon loads a YAML synonym database that falls back to the rule table.
func WithLexicon(path string) Option {
	return func(cfg *pipelineConfig) {
		cfg.LexiconPath = path
	}
}

// WithEmbedder enables embedding-based semantic similarity.
func WithEmbedder(e Embedder) Option {
	return func(cfg *pipelineConfig) {
		cfg.Embedder = e
	}
}

// WithOpenAIEmbeddings enables semantic similarity through an OpenAI-compatible embeddings endpoint.
func WithOpenAIEmbeddings(c embedding.Config) Option {
	return func(cfg *pipelineConfig) {
		cfg.OpenAI = &c
	}
}

// WithLengthCheck adds a length drift validator. With weight 0 its result is
// reported but does not move the overall validation score.
func WithLengthCheck(c LengthConfig, weight float64) Option {
	return func(cfg *pipelineConfig) {
		cfg.LengthCheck = &c
		cfg.LengthWeight = weight
	}
}

// WithMetrics sets the recorder for pipeline observations.
func WithMetrics(m MetricsRecorder) Option {
	return func(cfg *pipelineConfig) {
		cfg.Metrics = m
	}
}

// WithPrometheus registers the pipeline metrics on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(cfg *pipelineConfig) {
		cfg.Registerer = reg
	}
}

// WithBatchConcurrency bounds the number of texts RunBatch processes at once.
func WithBatchConcurrency(n int) Option {
	return func(cfg *pipelineConfig) {
		cfg.BatchConcurrency = n
	}
}

// WithClock overrides the time source for result timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *pipelineConfig) {
		cfg.Clock = clock
	}
}

// WithWarmUp enables system warm-up on initialization.
func WithWarmUp(enable bool) Option {
	return func(cfg *pipelineConfig) {
		cfg.WarmUp = enable
	}
}

// WithWarmUpConfig sets a custom warm-up configuration.
func WithWarmUpConfig(c WarmupConfig) Option {
	return func(cfg *pipelineConfig) {
		cfg.WarmUpConfig = c
		cfg.WarmUp = true
	}
}

// Pipeline wires the strategies, the validator, the engine and the stability analyzer.
type Pipeline struct {
	config    pipelineConfig
	logger    ports.Logger
	engine    *engine.Engine
	validator *validation.Validator
	analyzer  *stability.Analyzer
	warmed    bool
}

// New creates a Pipeline.
func New(opts ...Option) (*Pipeline, error) {
	config := pipelineConfig{
		Robustness:       domain.DefaultRobustnessTestConfig(),
		Validation:       domain.DefaultValidationConfig(),
		Stability:        domain.DefaultStabilityAnalysisConfig(),
		BatchConcurrency: 4,
		WarmUpConfig:     warmup.DefaultWarmupConfig(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		var err error
		config.Logger, err = logger.NewStdLogger()
		if err != nil {
			return nil, err
		}
	}
	if config.Normalizer == nil {
		config.Normalizer = normalizer.NewDefaultNormalizer()
	}
	if config.BatchConcurrency < 1 {
		return nil, fmt.Errorf("%w: batch concurrency must be at least 1", domain.ErrInvalidConfig)
	}
	if err := resolveAdapters(&config); err != nil {
		return nil, err
	}

	validatorOpts := []validation.Option{
		validation.WithEmbedder(config.Embedder),
		validation.WithMetrics(config.Metrics),
	}
	if config.LengthCheck != nil {
		lengthCheck, err := validation.NewLengthValidator(*config.LengthCheck, config.Logger, config.Normalizer)
		if err != nil {
			return nil, err
		}
		validatorOpts = append(validatorOpts, validation.WithValidator(lengthCheck, config.LengthWeight))
	}
	validator, err := validation.NewValidator(config.Validation, config.Logger, config.Normalizer, validatorOpts...)
	if err != nil {
		return nil, err
	}
	analyzer, err := stability.NewAnalyzer(config.Stability, config.Logger, config.Normalizer,
		stability.WithMetrics(config.Metrics),
	)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:    config,
		logger:    config.Logger,
		validator: validator,
		analyzer:  analyzer,
	}
	p.engine, err = p.newEngine(nil)
	if err != nil {
		return nil, err
	}

	if config.WarmUp {
		p.WarmUp(context.Background(), config.WarmUpConfig)
	}
	return p, nil
}

// resolveAdapters builds the adapters that options only describe.
func resolveAdapters(config *pipelineConfig) error {
	if config.SynonymProvider == nil {
		config.SynonymProvider = synonym.NewRuleTable()
		if config.LexiconPath != "" {
			lex, err := synonym.LoadLexicon(config.LexiconPath, config.SynonymProvider)
			if err != nil {
				return err
			}
			config.Logger.Info("Loaded synonym lexicon", "path", config.LexiconPath, "entries", lex.Len())
			config.SynonymProvider = lex
		}
	}
	if config.Embedder == nil && config.OpenAI != nil {
		e, err := embedding.NewOpenAIEmbedder(*config.OpenAI, config.Logger)
		if err != nil {
			return err
		}
		config.Embedder = e
	}
	if config.Metrics == nil && config.Registerer != nil {
		m, err := metrics.NewPrometheusRecorder(config.Registerer)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		config.Metrics = m
	}
	if config.Metrics == nil {
		config.Metrics = ports.NopMetrics{}
	}
	return nil
}

// newEngine builds an engine with its own strategy instances. A nil registry
// gives the engine a private one.
func (p *Pipeline) newEngine(registry *engine.Registry) (*engine.Engine, error) {
	return engine.New(p.config.Robustness, p.logger, p.config.Normalizer,
		engine.WithSynonymProvider(p.config.SynonymProvider),
		engine.WithValidator(p.validator),
		engine.WithMetrics(p.config.Metrics),
		engine.WithClock(p.config.Clock),
		engine.WithRegistry(registry),
	)
}

// Run executes a robustness test and stores the result. An empty testID is
// replaced by a generated one.
func (p *Pipeline) Run(ctx context.Context, testID, text string, targetConclusions ...string) TestExecutionResult {
	if testID == "" {
		testID = uuid.NewString()
	}
	return p.engine.ExecuteRobustnessTest(ctx, testID, text, targetConclusions)
}

// RunBatch runs every input on its own engine, at most BatchConcurrency at a
// time, and stores the results. Results are returned in input order. The
// only error is the context's.
func (p *Pipeline) RunBatch(ctx context.Context, inputs []BatchInput) ([]TestExecutionResult, error) {
	results := make([]TestExecutionResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.BatchConcurrency)

	for i, in := range inputs {
		i, in := i, in
		if in.TestID == "" {
			in.TestID = uuid.NewString()
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := p.newEngine(engine.NewRegistry())
			if err != nil {
				return err
			}
			results[i] = e.ExecuteRobustnessTest(gctx, in.TestID, in.Text, in.TargetConclusions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range results {
		p.engine.Record(r)
	}
	p.logger.Info("Batch completed", "inputs", len(inputs))
	return results, nil
}

// Validate runs every validator over one transformation.
func (p *Pipeline) Validate(ctx context.Context, original, transformed string, result TransformationResult) map[string]ValidationResult {
	return p.validator.Validate(ctx, original, transformed, result)
}

// ValidateTransformation validates result and folds the outcome into a TransformationValidation.
func (p *Pipeline) ValidateTransformation(ctx context.Context, result TransformationResult) TransformationValidation {
	return validation.Summarize(ctx, p.validator, result)
}

// OverallValidationScore combines validator results as 0.7 semantic + 0.3 structural.
func (p *Pipeline) OverallValidationScore(results map[string]ValidationResult) float64 {
	return p.validator.OverallScore(results)
}

// Analyze computes the stability metrics of results.
func (p *Pipeline) Analyze(ctx context.Context, results []TestExecutionResult) StabilityMetrics {
	return p.analyzer.AnalyzeStability(ctx, results)
}

// AnalyzeDetailed also returns the decision points extracted from the original texts.
func (p *Pipeline) AnalyzeDetailed(ctx context.Context, results []TestExecutionResult) (StabilityMetrics, []DecisionPoint) {
	return p.analyzer.AnalyzeDetailed(ctx, results)
}

// AnalyzeRegistry analyzes every stored result.
func (p *Pipeline) AnalyzeRegistry(ctx context.Context) StabilityMetrics {
	return p.analyzer.AnalyzeStability(ctx, p.engine.Results())
}

// Result returns a stored result.
func (p *Pipeline) Result(id string) (TestExecutionResult, bool) { return p.engine.Result(id) }

// Results returns every stored result in timestamp order.
func (p *Pipeline) Results() []TestExecutionResult { return p.engine.Results() }

// Summary aggregates the stored results.
func (p *Pipeline) Summary() TestSummary { return p.engine.Summary() }

// Clear drops every stored result.
func (p *Pipeline) Clear() { p.engine.Clear() }

// Strategies lists the transformation kinds in execution order.
func (p *Pipeline) Strategies() []TransformationType {
	strategies := p.engine.Strategies()
	kinds := make([]TransformationType, len(strategies))
	for i, s := range strategies {
		kinds[i] = s.Type()
	}
	return kinds
}

// WarmUp exercises throwaway strategies, the validator and the normalizer.
// The serving strategies are not touched, so warm-up never changes results.
func (p *Pipeline) WarmUp(ctx context.Context, config WarmupConfig) WarmupStats {
	if p.warmed {
		p.logger.Debug("System already warmed up, skipping")
		return WarmupStats{}
	}

	mgr := warmup.NewManager(p.logger, config)
	strategies, err := transform.NewDefaultStrategies(p.config.Robustness.Transformation, p.config.SynonymProvider, p.logger)
	if err != nil {
		p.logger.Warn("Skipping strategy warm-up", "error", err)
	}
	for _, s := range strategies {
		mgr.RegisterStrategy(s)
	}
	mgr.RegisterValidator(p.validator)
	mgr.RegisterNormalizer(p.config.Normalizer)

	stats := mgr.WarmUp(ctx)
	p.warmed = true
	return stats
}
