package embeddings

import "fmt"

// FromConfig builds an embedder for the named provider.
func FromConfig(provider, model string, dimensions int, apiKey, baseURL string) (Embedder, error) {
	switch provider {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		if model == "" {
			model = string(ModelTextEmbedding3Small)
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model), WithBaseURL(baseURL), WithDimensions(dimensions)), nil
	case "ollama":
		if model == "" {
			model = "nomic-embed-text"
		}
		if dimensions <= 0 {
			dimensions = 768
		}
		return NewOllamaEmbedder(model, dimensions, baseURL), nil
	case "hash", "":
		return NewHashEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
