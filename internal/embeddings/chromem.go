package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// ToChromemFunc converts an Embedder into a chromem.EmbeddingFunc.
// chromem-go expects a function that embeds a single text at a time. The
// stores always pass precomputed vectors, so this only runs if chromem is
// asked to embed on its own.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return Encode(ctx, e, text)
	}
}
