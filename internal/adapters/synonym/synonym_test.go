package synonym

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_robustness/internal/core/text"
)

func TestRuleTableNeverTouchesKeyTerms(t *testing.T) {
	for word, syns := range defaultRules {
		assert.False(t, text.IsKeyTerm(word), "rule head %q is a key term", word)
		for _, s := range syns {
			assert.False(t, text.IsKeyTerm(s), "synonym %q of %q is a key term", s, word)
			assert.False(t, text.HasPhrase(s, text.ConclusionMarkers()), "synonym %q is a conclusion marker", s)
			assert.False(t, text.HasPhrase(s, text.RecommendationMarkers()), "synonym %q is a recommendation marker", s)
		}
	}
}

func TestRuleTableLookup(t *testing.T) {
	p := NewRuleTable()
	assert.Equal(t, "rule_table", p.Name())
	assert.Contains(t, p.Synonyms("big"), "large")
	assert.Nil(t, p.Synonyms("zebra"))
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yml")
	doc := []byte(`synonyms:
  Happy: [glad, joyful, happy]
  rapid: [fast]
`)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	lex, err := LoadLexicon(path, NewRuleTable())
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Len())
	assert.Equal(t, path, lex.Source())
	assert.Equal(t, []string{"glad", "joyful"}, lex.Synonyms("happy"))
	assert.Contains(t, lex.Synonyms("big"), "large", "unknown words use the fallback")

	noFallback, err := ParseLexicon(doc, nil)
	require.NoError(t, err)
	assert.Nil(t, noFallback.Synonyms("big"))
}

func TestLoadLexiconErrors(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yml"), nil)
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("other: 1\n"), nil)
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("synonyms: [not, a, map]\n"), nil)
	assert.Error(t, err)
}
