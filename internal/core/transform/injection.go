package transform

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

const (
	injectionProbability = 0.3
	wordsPerFiller       = 10
	minInjectionWords    = 20
	minInjectionTarget   = 5
	minSentences         = 3
)

// fillerPhrases carry no conclusions, recommendations, numbers, negations or key terms.
var fillerPhrases = []string{
	"It is worth noting that the weather was pleasant that day.",
	"Many people enjoy reading books during their free time.",
	"The history of the region dates back several centuries.",
	"Some readers may find this background information interesting.",
	"Coffee remains one of the most popular beverages worldwide.",
	"The office building has a large parking area nearby.",
	"Various colors can be seen in the autumn leaves.",
	"The meeting room was recently painted a light blue.",
	"Birds can often be heard singing in the early morning.",
	"The library downstairs keeps extended hours on most weekdays.",
}

// FillerPhrases returns the neutral phrase pool.
func FillerPhrases() []string {
	return append([]string(nil), fillerPhrases...)
}

// ContentInjector inserts neutral filler sentences between existing sentences.
type ContentInjector struct {
	config domain.TransformationConfig
	logger ports.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewContentInjector creates an irrelevant content injection strategy. A nil
// rng is replaced by one seeded from config.RandomSeed.
func NewContentInjector(config domain.TransformationConfig, rng *rand.Rand, logger ports.Logger) *ContentInjector {
	if rng == nil {
		rng = NewRand(config.RandomSeed)
	}
	return &ContentInjector{config: config, rng: rng, logger: logger}
}

// Type identifies the strategy.
func (c *ContentInjector) Type() domain.TransformationType { return domain.IrrelevantContentInjection }

// IsApplicable requires twenty words, three sentences and a target of at least five injected words.
func (c *ContentInjector) IsApplicable(t string) bool {
	words := text.WordCount(t)
	if words < minInjectionWords {
		return false
	}
	if len(text.Sentences(t)) < minSentences {
		return false
	}
	return c.targetWords(words) >= minInjectionTarget
}

func (c *ContentInjector) targetWords(words int) int {
	return int(math.Round(float64(words) * c.config.IrrelevantContentRatio))
}

// phraseBudget is the number of filler phrases a target word count allows.
// Injection stops once the count reaches it, so a fractional budget admits
// one more phrase than its floor.
func phraseBudget(target int) float64 {
	return float64(target) / wordsPerFiller
}

// Transform walks the interior sentence boundaries and inserts a filler phrase
// at each with probability 0.3 until the phrase budget is spent.
func (c *ContentInjector) Transform(ctx context.Context, original string) (result domain.TransformationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Content injection failed", "panic", r)
			result = fatal(domain.IrrelevantContentInjection, original, start, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return fatal(domain.IrrelevantContentInjection, original, start, err)
	}

	paragraphs := text.Paragraphs(original)
	sentences := make([][]string, len(paragraphs))
	total := 0
	for i, p := range paragraphs {
		sentences[i] = text.Sentences(p)
		total += len(sentences[i])
	}

	target := c.targetWords(text.WordCount(original))
	budget := phraseBudget(target)

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		changes    []string
		injections int
		position   int
	)
	rebuilt := make([]string, len(paragraphs))
	for i, ps := range sentences {
		out := make([]string, 0, len(ps)+1)
		for _, s := range ps {
			out = append(out, s)
			position++
			// Boundaries after the final sentence of the text are not interior.
			if position >= total || float64(injections) >= budget {
				continue
			}
			if c.rng.Float64() < injectionProbability {
				phrase := fillerPhrases[c.rng.Intn(len(fillerPhrases))]
				out = append(out, phrase)
				injections++
				changes = append(changes, fmt.Sprintf("injected %q after sentence %d", phrase, position))
			}
		}
		rebuilt[i] = strings.Join(out, " ")
	}

	c.logger.Debug("Content injection finished",
		"injections", injections,
		"budget", budget,
		"target_words", target,
	)

	confidence := math.Min(float64(injections)/budget, 1)
	return finish(domain.IrrelevantContentInjection, original, strings.Join(rebuilt, "\n\n"), changes, confidence, start, map[string]interface{}{
		"injections":     injections,
		"target_words":   target,
		"phrase_budget":  budget,
		"sentence_count": total,
	})
}
