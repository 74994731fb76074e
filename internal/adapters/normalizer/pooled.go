package normalizer

import (
	"unicode"
	"unicode/utf8"

	"github.com/baditaflorin/go_robustness/internal/pool"
	"github.com/baditaflorin/go_robustness/internal/ports"
)

const (
	keepByte  = 0
	spaceByte = 1
	lowerByte = 2
)

// PooledNormalizer produces the same tokens as DefaultNormalizer but reuses
// buffers across calls and collapses whitespace runs. It is safe for concurrent use.
type PooledNormalizer struct {
	// Decision table for ASCII characters (0-127).
	asciiTable [128]byte
	buffers    *pool.BufferPool
}

// NewPooledNormalizer creates a pooled normalizer.
func NewPooledNormalizer() ports.Normalizer {
	n := &PooledNormalizer{buffers: pool.NewBufferPool(8192)}
	for i := 0; i < 128; i++ {
		r := rune(i)
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			n.asciiTable[i] = spaceByte
		case unicode.IsUpper(r):
			n.asciiTable[i] = lowerByte
		default:
			n.asciiTable[i] = keepByte
		}
	}
	return n
}

// Normalize lower-cases text, maps punctuation and symbols to single spaces
// and trims the result.
func (n *PooledNormalizer) Normalize(text string) string {
	if len(text) == 0 {
		return ""
	}

	buffer := n.buffers.Get()
	defer n.buffers.Put(buffer)
	if cap(*buffer) < len(text) {
		*buffer = make([]byte, 0, len(text))
	}

	out := *buffer
	lastWasSpace := true
	space := func() {
		if !lastWasSpace {
			out = append(out, ' ')
			lastWasSpace = true
		}
	}
	for i := 0; i < len(text); {
		b := text[i]
		if b < utf8.RuneSelf {
			switch n.asciiTable[b] {
			case keepByte:
				out = append(out, b)
				lastWasSpace = false
			case spaceByte:
				space()
			case lowerByte:
				out = append(out, b+('a'-'A'))
				lastWasSpace = false
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			space()
			continue
		}
		out = utf8.AppendRune(out, unicode.ToLower(r))
		lastWasSpace = false
	}
	if len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	*buffer = out
	return string(out)
}
