package embeddings

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks github.com/ziadkadry99/crewmatch/internal/embeddings Embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
)

// Embedder defines the interface for generating text embeddings.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// Encode embeds a single non-empty text and checks the result against the
// embedder's fixed dimension. Provider failures come back as connectivity
// errors, blank input as a validation error.
func Encode(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("encode", "text", "must not be empty")
	}

	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, apperr.Connectivity("encode", fmt.Errorf("%s: %w", e.Name(), err))
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("encode: %s returned %d embeddings, expected 1", e.Name(), len(vecs))
	}
	if want := e.Dimensions(); want > 0 && len(vecs[0]) != want {
		return nil, fmt.Errorf("encode: %s returned %d dimensions, expected %d", e.Name(), len(vecs[0]), want)
	}
	return vecs[0], nil
}
