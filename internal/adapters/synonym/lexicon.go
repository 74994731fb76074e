package synonym

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baditaflorin/go_robustness/internal/ports"
)

// Lexicon is a lexical synonym database loaded from a YAML document of the form
//
//	synonyms:
//	  happy: [glad, joyful]
//	  rapid: [fast, quick]
//
// Lookups for words the database does not know go to the fallback provider, if any.
// A Lexicon is read-only after loading and safe for concurrent use.
type Lexicon struct {
	entries  map[string][]string
	fallback ports.SynonymProvider
	source   string
}

type lexiconFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadLexicon reads a YAML lexical database from path.
func LoadLexicon(path string, fallback ports.SynonymProvider) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	lex, err := ParseLexicon(raw, fallback)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}
	lex.source = path
	return lex, nil
}

// ParseLexicon builds a Lexicon from YAML bytes.
func ParseLexicon(raw []byte, fallback ports.SynonymProvider) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Synonyms) == 0 {
		return nil, fmt.Errorf("lexicon has no synonyms section")
	}
	entries := make(map[string][]string, len(file.Synonyms))
	for word, syns := range file.Synonyms {
		key := strings.ToLower(strings.TrimSpace(word))
		for _, s := range syns {
			s = strings.TrimSpace(s)
			if s != "" && !strings.EqualFold(s, key) {
				entries[key] = append(entries[key], s)
			}
		}
	}
	return &Lexicon{entries: entries, fallback: fallback, source: "inline"}, nil
}

// Name identifies the provider.
func (l *Lexicon) Name() string { return "lexicon" }

// Len reports the number of head words.
func (l *Lexicon) Len() int { return len(l.entries) }

// Source is the path the lexicon was loaded from.
func (l *Lexicon) Source() string { return l.source }

// Synonyms returns the database candidates for word, falling back when unknown.
func (l *Lexicon) Synonyms(word string) []string {
	if syns, ok := l.entries[word]; ok {
		return syns
	}
	if l.fallback != nil {
		return l.fallback.Synonyms(word)
	}
	return nil
}
