package transform

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/baditaflorin/go_robustness/internal/core/domain"
	"github.com/baditaflorin/go_robustness/internal/core/text"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

var tokenPattern = regexp.MustCompile(`\S+`)

// SynonymReplacer swaps words for synonyms while leaving whitespace untouched.
type SynonymReplacer struct {
	config   domain.TransformationConfig
	provider ports.SynonymProvider
	logger   ports.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynonymReplacer creates a synonym replacement strategy. A nil rng is
// replaced by one seeded from config.RandomSeed.
func NewSynonymReplacer(config domain.TransformationConfig, provider ports.SynonymProvider, rng *rand.Rand, logger ports.Logger) *SynonymReplacer {
	if rng == nil {
		rng = NewRand(config.RandomSeed)
	}
	return &SynonymReplacer{config: config, provider: provider, rng: rng, logger: logger}
}

// Type identifies the strategy.
func (s *SynonymReplacer) Type() domain.TransformationType { return domain.SynonymReplacement }

// IsApplicable requires more than five whitespace-delimited tokens.
func (s *SynonymReplacer) IsApplicable(t string) bool {
	return text.WordCount(t) > 5
}

// Transform replaces at most MaxSynonymReplacements words. Each candidate is
// accepted with probability SynonymConfidenceThreshold.
func (s *SynonymReplacer) Transform(ctx context.Context, original string) (result domain.TransformationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Synonym replacement failed", "panic", r)
			result = fatal(domain.SynonymReplacement, original, start, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return fatal(domain.SynonymReplacement, original, start, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	spans := tokenPattern.FindAllStringIndex(original, -1)
	limit := s.config.MaxSynonymReplacements
	var (
		sb           strings.Builder
		changes      []string
		replacements int
		considered   int
		last         int
	)
	sb.Grow(len(original))

	for i, span := range spans {
		if replacements >= limit {
			break
		}
		token := original[span[0]:span[1]]
		lead, core, trail := splitToken(token)
		if core == "" {
			continue
		}
		lower := strings.ToLower(core)
		if s.config.PreserveKeyTerms && text.IsKeyTerm(lower) {
			continue
		}
		candidates := s.provider.Synonyms(lower)
		if len(candidates) == 0 {
			continue
		}
		considered++
		if s.rng.Float64() >= s.config.SynonymConfidenceThreshold {
			continue
		}
		replacement := matchCase(core, candidates[s.rng.Intn(len(candidates))])

		sb.WriteString(original[last:span[0]])
		sb.WriteString(lead)
		sb.WriteString(replacement)
		sb.WriteString(trail)
		last = span[1]

		replacements++
		changes = append(changes, fmt.Sprintf("replaced %q with %q at token %d", core, replacement, i))
	}
	sb.WriteString(original[last:])

	confidence := 0.0
	if limit > 0 {
		confidence = float64(replacements) / float64(limit)
	}

	s.logger.Debug("Synonym replacement finished",
		"replacements", replacements,
		"candidates", considered,
		"provider", s.provider.Name(),
	)

	return finish(domain.SynonymReplacement, original, sb.String(), changes, confidence, start, map[string]interface{}{
		"replacements_made":    replacements,
		"candidates_evaluated": considered,
		"synonym_provider":     s.provider.Name(),
	})
}

// splitToken separates leading and trailing punctuation from the word core.
func splitToken(token string) (lead, core, trail string) {
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(token, isWord)
	if start < 0 {
		return token, "", ""
	}
	end := strings.LastIndexFunc(token, isWord)
	_, size := utf8.DecodeRuneInString(token[end:])
	return token[:start], token[start : end+size], token[end+size:]
}

// matchCase copies the capitalisation pattern of word onto replacement.
func matchCase(word, replacement string) string {
	if replacement == "" {
		return replacement
	}
	if utf8.RuneCountInString(word) > 1 && strings.ToUpper(word) == word {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(word)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}
