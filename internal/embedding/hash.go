package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashClient is a deterministic feature-hashing embedder. Words and character
// trigrams are hashed into signed buckets and the result is L2-normalised, so
// texts sharing vocabulary land close together under cosine similarity. It has
// no model weights and no network dependency.
type HashClient struct {
	dimensions int
}

// NewHashClient returns a HashClient producing vectors of the given width.
func NewHashClient(dimensions int) *HashClient {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashClient{dimensions: dimensions}
}

func (c *HashClient) Embed(_ context.Context, text string) ([]float32, error) {
	return c.vector(text), nil
}

func (c *HashClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = c.vector(text)
	}
	return out, nil
}

func (c *HashClient) Dimensions() int {
	return c.dimensions
}

func (c *HashClient) vector(text string) []float32 {
	vec := make([]float32, c.dimensions)
	for _, tok := range tokenize(text) {
		c.add(vec, "w:"+tok, 1.0)
		if len(tok) < 4 {
			continue
		}
		padded := "^" + tok + "$"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			c.add(vec, "g:"+string(runes[i:i+3]), 0.5)
		}
	}
	Normalize(vec)
	return vec
}

func (c *HashClient) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(c.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize lower-cases text and splits it into words. snake_case and
// CamelCase identifiers also contribute their parts.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		parts := splitIdentifier(f)
		if len(parts) > 1 {
			tokens = append(tokens, strings.ToLower(strings.Trim(f, "_")))
		}
		for _, p := range parts {
			tokens = append(tokens, strings.ToLower(p))
		}
	}
	return tokens
}

func splitIdentifier(s string) []string {
	var parts []string
	for _, piece := range strings.Split(s, "_") {
		if piece == "" {
			continue
		}
		runes := []rune(piece)
		start := 0
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
				parts = append(parts, string(runes[start:i]))
				start = i
			}
		}
		parts = append(parts, string(runes[start:]))
	}
	return parts
}
