package ports

// Normalizer lower-cases text and strips punctuation before tokenisation.
type Normalizer interface {
	Normalize(text string) string
}
