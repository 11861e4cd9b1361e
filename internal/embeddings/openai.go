package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const maxBatchSize = 100

// OpenAIModel represents a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
)

func (m OpenAIModel) defaultDimensions() int {
	switch m {
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API or
// any server speaking the same protocol.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      OpenAIModel
	dimensions int
}

// OpenAIOption customizes an OpenAIEmbedder.
type OpenAIOption func(*openai.ClientConfig, *OpenAIEmbedder)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIEmbedder) {
		if url != "" {
			cfg.BaseURL = url
		}
	}
}

// WithDimensions requests shortened vectors (text-embedding-3 models only).
func WithDimensions(n int) OpenAIOption {
	return func(_ *openai.ClientConfig, e *OpenAIEmbedder) {
		if n > 0 {
			e.dimensions = n
		}
	}
}

// NewOpenAIEmbedder creates a new OpenAI embedder with the given API key and model.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel, opts ...OpenAIOption) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	e := &OpenAIEmbedder{model: model, dimensions: model.defaultDimensions()}
	for _, opt := range opts {
		opt(&cfg, e)
	}
	e.client = openai.NewClientWithConfig(cfg)
	return e
}

func (e *OpenAIEmbedder) Name() string {
	return "openai/" + string(e.model)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))
		batch := texts[start:end]

		req := openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		}
		if e.dimensions != e.model.defaultDimensions() {
			req.Dimensions = e.dimensions
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(batch))
		}

		// Data is not guaranteed to be in input order.
		vecs := make([][]float32, len(batch))
		for _, emb := range resp.Data {
			if emb.Index < 0 || emb.Index >= len(batch) {
				return nil, fmt.Errorf("openai returned out-of-range index %d", emb.Index)
			}
			vecs[emb.Index] = emb.Embedding
		}
		out = append(out, vecs...)
	}

	return out, nil
}
