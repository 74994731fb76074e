// Package warmup exercises the pipeline components before serving traffic.
package warmup

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

// WarmupConfig defines configuration for warming up the system
type WarmupConfig struct {
	// Number of concurrent warmup routines to run
	Concurrency int
	// Number of iterations per routine
	Iterations int
	// Number of paragraphs in the generated sample document
	SampleParagraphs int
	// Warmup duration (0 means no time limit)
	Duration time.Duration
	// Whether to perform GC after warmup
	ForceGC bool
}

// DefaultWarmupConfig returns the default warmup configuration
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Concurrency:      runtime.NumCPU(),
		Iterations:       100,
		SampleParagraphs: 4,
		Duration:         5 * time.Second,
		ForceGC:          true,
	}
}

// Stats reports how much work a warmup run did.
type Stats struct {
	Normalizations  int64
	Transformations int64
	Validations     int64
	Duration        time.Duration
}

// Manager handles system warmup operations. Transforming text advances a
// strategy's random source, so register throwaway strategy instances rather
// than the ones that serve requests.
type Manager struct {
	logger      ports.Logger
	strategies  []ports.Strategy
	validators  []ports.TransformationValidator
	normalizers []ports.Normalizer
	config      WarmupConfig
}

// NewManager creates a new warmup manager
func NewManager(logger ports.Logger, config WarmupConfig) *Manager {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Manager{
		logger: logger,
		config: config,
	}
}

// RegisterStrategy adds a transformation strategy to be warmed up
func (wm *Manager) RegisterStrategy(s ports.Strategy) {
	wm.strategies = append(wm.strategies, s)
}

// RegisterValidator adds a validator to be warmed up
func (wm *Manager) RegisterValidator(v ports.TransformationValidator) {
	wm.validators = append(wm.validators, v)
}

// RegisterNormalizer adds a normalizer to be warmed up
func (wm *Manager) RegisterNormalizer(norm ports.Normalizer) {
	wm.normalizers = append(wm.normalizers, norm)
}

// WarmUp runs the warmup process for all registered components. Normalizers
// and validators run concurrently; strategies run on a single goroutine.
func (wm *Manager) WarmUp(ctx context.Context) Stats {
	startTime := time.Now()
	wm.logger.Info("Starting system warmup",
		"components", len(wm.strategies)+len(wm.validators)+len(wm.normalizers),
		"concurrency", wm.config.Concurrency,
		"iterations", wm.config.Iterations,
	)

	warmupCtx := ctx
	if wm.config.Duration > 0 {
		var cancel context.CancelFunc
		warmupCtx, cancel = context.WithTimeout(ctx, wm.config.Duration)
		defer cancel()
	}

	sample := GenerateSampleText(wm.config.SampleParagraphs)
	var stats Stats
	stats.Normalizations = wm.warmUpNormalizers(warmupCtx, sample)
	transformed, n := wm.warmUpStrategies(warmupCtx, sample)
	stats.Transformations = n
	stats.Validations = wm.warmUpValidators(warmupCtx, sample, transformed)

	if wm.config.ForceGC {
		wm.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}

	stats.Duration = time.Since(startTime)
	wm.logger.Info("System warmup completed",
		"duration", stats.Duration,
		"normalizations", stats.Normalizations,
		"transformations", stats.Transformations,
		"validations", stats.Validations,
	)
	return stats
}

// parallel runs work on Concurrency goroutines for Iterations rounds each and
// returns the number of rounds completed.
func (wm *Manager) parallel(ctx context.Context, work func()) int64 {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < wm.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var done int64
			for j := 0; j < wm.config.Iterations && ctx.Err() == nil; j++ {
				work()
				done++
			}
			mu.Lock()
			total += done
			mu.Unlock()
		}()
	}
	wg.Wait()
	return total
}

func (wm *Manager) warmUpNormalizers(ctx context.Context, sample string) int64 {
	if len(wm.normalizers) == 0 {
		return 0
	}
	wm.logger.Debug("Warming up normalizers", "count", len(wm.normalizers))
	return wm.parallel(ctx, func() {
		for _, normalizer := range wm.normalizers {
			_ = normalizer.Normalize(sample)
		}
	})
}

// warmUpStrategies applies every strategy Iterations times and returns the
// last transformation produced for use by the validators.
func (wm *Manager) warmUpStrategies(ctx context.Context, sample string) (string, int64) {
	transformed := sample
	if len(wm.strategies) == 0 {
		return transformed, 0
	}
	wm.logger.Debug("Warming up strategies", "count", len(wm.strategies))

	var n int64
	for j := 0; j < wm.config.Iterations; j++ {
		if ctx.Err() != nil {
			break
		}
		for _, s := range wm.strategies {
			if !s.IsApplicable(sample) {
				continue
			}
			if r := s.Transform(ctx, sample); r.TransformedText != "" {
				transformed = r.TransformedText
			}
			n++
		}
	}
	return transformed, n
}

func (wm *Manager) warmUpValidators(ctx context.Context, original, transformed string) int64 {
	if len(wm.validators) == 0 {
		return 0
	}
	wm.logger.Debug("Warming up validators", "count", len(wm.validators))
	return wm.parallel(ctx, func() {
		for _, v := range wm.validators {
			tr := domain.TransformationResult{OriginalText: original, TransformedText: transformed}
			results := v.Validate(ctx, original, transformed, tr)
			_ = v.Passed(v.OverallScore(results))
		}
	})
}

var sampleSentences = []string{
	"The analysis shows that revenue grew by 12 percent over the last year.",
	"Many customers use the product often and the team found the new method simple.",
	"However, costs did not decrease as quickly as the study expected.",
	"The company should improve the plan before the market changes again.",
	"Therefore, we recommend a careful expansion into two new regions.",
}

// GenerateSampleText builds a document of the given number of paragraphs
// that every transformation strategy accepts.
func GenerateSampleText(paragraphs int) string {
	if paragraphs < 2 {
		paragraphs = 2
	}
	var sb strings.Builder
	for i := 0; i < paragraphs; i++ {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		for j := 0; j < 3; j++ {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(sampleSentences[(i+j)%len(sampleSentences)])
		}
	}
	return sb.String()
}
