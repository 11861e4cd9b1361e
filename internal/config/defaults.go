package config

// defaultModels maps each provider to its default embedding model and
// dimension.
var defaultModels = map[ProviderType]struct {
	Model      string
	Dimensions int
}{
	ProviderOpenAI: {Model: "text-embedding-3-small", Dimensions: 1536},
	ProviderOllama: {Model: "nomic-embed-text", Dimensions: 768},
	ProviderHash:   {Model: "fnv", Dimensions: 256},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		OllamaURL:           "http://localhost:11434",
		VectorBackend:       BackendChromem,
		VectorDir:           ".crewmatch/vectors",
		DBPath:              ".crewmatch/crewmatch.db",
		LogLevel:            "info",
		LogFormat:           "text",
		Search: SearchConfig{
			MinFetch:      20,
			MaxK:          100,
			SnippetLength: 200,
		},
		Sync: SyncConfig{
			Mode:        SyncInline,
			Workers:     4,
			QueueSize:   1024,
			NATSSubject: "crewmatch.sync.events",
		},
		Rebuild: RebuildConfig{
			BatchSize:     100,
			Concurrency:   4,
			FailOnPartial: true,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// DefaultModel returns the default embedding model and dimension for a
// provider, falling back to OpenAI's.
func DefaultModel(p ProviderType) (string, int) {
	if m, ok := defaultModels[p]; ok {
		return m.Model, m.Dimensions
	}
	m := defaultModels[ProviderOpenAI]
	return m.Model, m.Dimensions
}
