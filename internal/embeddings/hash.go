package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size used when none is configured.
const DefaultHashDimensions = 256

// HashEmbedder is an offline embedder that maps word tokens into a fixed
// number of buckets (feature hashing) and L2-normalizes the counts. Texts
// that share words land close together in cosine space. It needs no model
// download and is fully deterministic.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder; dimensions <= 0 selects the default.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) Name() string    { return "hash" }
func (e *HashEmbedder) Dimensions() int { return e.dimensions }

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{text}
	}
	for _, tok := range tokens {
		vec[bucket(tok, e.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// tokenize lowercases and splits on anything that is not a letter or digit,
// so "electrical_installation" yields two tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bucket(token string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(n))
}
