// Package text holds the lexical heuristics shared by the strategies, the
// validators, the engine and the stability analyzer.
package text

import (
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Paragraphs splits s on blank lines and drops empty paragraphs.
func Paragraphs(s string) []string {
	parts := paragraphBreak.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Sentences splits every paragraph of s into sentences. A sentence ends at
// '.', '!' or '?' followed by whitespace or the end of the paragraph, so
// decimals such as "3.5" stay intact.
func Sentences(s string) []string {
	var out []string
	for _, p := range Paragraphs(s) {
		out = append(out, splitSentences(p)...)
	}
	return out
}

func splitSentences(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if !isTerminator(p[i]) {
			continue
		}
		j := i + 1
		for j < len(p) && (isTerminator(p[j]) || isCloser(p[j])) {
			j++
		}
		if j < len(p) && !isSpace(p[j]) {
			continue
		}
		if seg := strings.TrimSpace(p[start:j]); seg != "" {
			out = append(out, seg)
		}
		start = j
		i = j - 1
	}
	if tail := strings.TrimSpace(p[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminator(b byte) bool { return b == '.' || b == '!' || b == '?' }

func isCloser(b byte) bool { return b == '"' || b == '\'' || b == ')' || b == ']' }

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

// WordCount counts whitespace-delimited tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Canonical collapses the whitespace of an already normalised string.
func Canonical(normalized string) string {
	return strings.Join(strings.Fields(normalized), " ")
}

// HasPhrase reports whether any phrase occurs on word boundaries in normalized.
func HasPhrase(normalized string, phrases []string) bool {
	padded := " " + Canonical(normalized) + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// Set builds a membership set from words.
func Set(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// WordJaccard compares the word sets of two normalised strings.
func WordJaccard(a, b string) float64 {
	return Jaccard(Set(strings.Fields(a)), Set(strings.Fields(b)))
}

// LengthRatio returns min(a,b)/max(a,b); equal lengths (including zero) give 1.
func LengthRatio(a, b float64) float64 {
	if a == b {
		return 1
	}
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		return b / a
	}
	return a / b
}
