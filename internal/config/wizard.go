package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to crewmatch! Let's configure the matching engine.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding provider.
	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"openai - hosted embeddings (needs OPENAI_API_KEY)",
			"ollama - local model server",
			"hash   - offline feature hashing, no model needed",
		},
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := []ProviderType{ProviderOpenAI, ProviderOllama, ProviderHash}[idx]
	model, dims := DefaultModel(provider)
	cfg.EmbeddingProvider = provider

	// 2. Model and dimension.
	if provider != ProviderHash {
		modelPrompt := promptui.Prompt{Label: "Embedding model", Default: model}
		if model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("embedding model: %w", err)
		}
	}
	cfg.EmbeddingModel = model

	dimsPrompt := promptui.Prompt{
		Label:    "Embedding dimensions",
		Default:  strconv.Itoa(dims),
		Validate: positiveInt,
	}
	dimsStr, err := dimsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding dimensions: %w", err)
	}
	cfg.EmbeddingDimensions, _ = strconv.Atoi(dimsStr)

	if provider == ProviderOllama {
		urlPrompt := promptui.Prompt{Label: "Ollama URL", Default: cfg.OllamaURL}
		if cfg.OllamaURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("ollama url: %w", err)
		}
	}

	// 3. Vector backend.
	backendPrompt := promptui.Select{
		Label: "Select vector store",
		Items: []string{BackendChromem, BackendQdrant},
	}
	_, cfg.VectorBackend, err = backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	if cfg.VectorBackend == BackendQdrant {
		qdrantPrompt := promptui.Prompt{Label: "Qdrant URL", Default: "http://localhost:6333"}
		if cfg.QdrantURL, err = qdrantPrompt.Run(); err != nil {
			return nil, fmt.Errorf("qdrant url: %w", err)
		}
	}

	// 4. Sync mode.
	syncPrompt := promptui.Select{
		Label: "How should writes reach the vector store",
		Items: []string{SyncInline, SyncPool, SyncNATS},
	}
	_, cfg.Sync.Mode, err = syncPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("sync mode: %w", err)
	}
	if cfg.Sync.Mode == SyncNATS {
		natsPrompt := promptui.Prompt{Label: "NATS URL", Default: "nats://localhost:4222"}
		if cfg.Sync.NATSURL, err = natsPrompt.Run(); err != nil {
			return nil, fmt.Errorf("nats url: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment or .env before running crewmatch.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
