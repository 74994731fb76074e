package normalizer

import (
	"strings"
	"testing"
)

func TestNormalizersAgreeOnTokens(t *testing.T) {
	inputs := []string{
		"Hello, World!",
		"Revenue grew 12% in Q3; therefore we expand.",
		"  Mixed   CASE\ttext\n\nwith paragraphs.  ",
		"Ünïcödé — dashes… and “quotes”.",
		"",
	}
	def := NewDefaultNormalizer()
	pooled := NewPooledNormalizer()
	for _, in := range inputs {
		want := strings.Fields(def.Normalize(in))
		got := strings.Fields(pooled.Normalize(in))
		if strings.Join(want, " ") != strings.Join(got, " ") {
			t.Errorf("token mismatch for %q: default=%v pooled=%v", in, want, got)
		}
	}
}

func TestPooledNormalizerCollapsesWhitespace(t *testing.T) {
	got := NewPooledNormalizer().Normalize("  A,  b!!  C.  ")
	if got != "a b c" {
		t.Errorf("expected %q, got %q", "a b c", got)
	}
}

func TestFactory(t *testing.T) {
	for _, typ := range []NormalizerType{"", DefaultNormalizerType, PooledNormalizerType} {
		n, err := New(typ)
		if err != nil || n == nil {
			t.Fatalf("New(%q) = %v, %v", typ, n, err)
		}
	}
	if _, err := New("turbo"); err == nil {
		t.Error("expected error for unknown normalizer type")
	}
}
