package text

import (
	"regexp"
	"strings"
)

// keyTerms is the fixed domain vocabulary whose presence is tracked as a proxy for drift.
var keyTerms = []string{
	"analysis", "answer", "because", "conclusion", "cost", "critical", "data",
	"decision", "decrease", "evidence", "growth", "important", "increase",
	"must", "never", "not", "performance", "recommend", "recommendation",
	"result", "results", "revenue", "risk", "security", "should",
	"significant", "therefore", "thus",
}

var keyTermSet = Set(keyTerms)

var conclusionMarkers = []string{
	"therefore", "thus", "in conclusion", "consequently", "as a result",
	"hence", "to conclude", "in summary", "we conclude", "it follows that",
	"accordingly", "overall",
}

var recommendationMarkers = []string{
	"recommend", "recommended", "recommends", "recommendation", "should",
	"suggest", "suggests", "advise", "we propose", "ought to", "must",
}

var transitionalPhrases = []string{
	"however", "moreover", "furthermore", "additionally", "in addition",
	"therefore", "thus", "consequently", "as a result", "for example",
	"for instance", "in contrast", "similarly", "meanwhile", "finally",
	"first", "second", "next", "then", "also",
}

var stopwords = Set([]string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"has", "have", "in", "is", "it", "its", "of", "on", "or", "that", "the",
	"this", "to", "was", "were", "will", "with", "we", "our", "they", "their",
})

var negationPattern = regexp.MustCompile(`\b(?:not|no|never|none|nothing|nobody|neither|nor|cannot|without)\b|n't\b`)

var quantitativePattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:%|percent\b)?`)

// KeyTerms returns a copy of the fixed key-term vocabulary.
func KeyTerms() []string {
	return append([]string(nil), keyTerms...)
}

// IsKeyTerm reports whether the lower-cased word is a key term.
func IsKeyTerm(word string) bool {
	_, ok := keyTermSet[word]
	return ok
}

// IsStopword reports whether the lower-cased word carries no content.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// ConclusionMarkers returns the default conclusion marker phrases.
func ConclusionMarkers() []string {
	return append([]string(nil), conclusionMarkers...)
}

// RecommendationMarkers returns the recommendation marker phrases.
func RecommendationMarkers() []string {
	return append([]string(nil), recommendationMarkers...)
}

// TransitionalPhrases returns the coherence markers.
func TransitionalPhrases() []string {
	return append([]string(nil), transitionalPhrases...)
}

// CountKeyTerms counts key-term occurrences in a normalised string.
func CountKeyTerms(normalized string) int {
	n := 0
	for _, w := range strings.Fields(normalized) {
		if IsKeyTerm(w) {
			n++
		}
	}
	return n
}

// PresentKeyTerms returns the distinct key terms found in a normalised string.
func PresentKeyTerms(normalized string) map[string]struct{} {
	present := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if IsKeyTerm(w) {
			present[w] = struct{}{}
		}
	}
	return present
}

// CountNegations counts negation words in raw text, including "n't" contractions.
func CountNegations(raw string) int {
	return len(negationPattern.FindAllStringIndex(strings.ToLower(raw), -1))
}

// IsQuantitative reports whether raw text mentions a number or percentage.
func IsQuantitative(raw string) bool {
	return quantitativePattern.MatchString(raw)
}
