package config

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderHash   ProviderType = "hash"
)

// Vector backends.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Sync modes.
const (
	SyncInline = "inline"
	SyncPool   = "pool"
	SyncNATS   = "nats"
)

// Config is the top-level crewmatch configuration, corresponding to .crewmatch.yml.
type Config struct {
	EmbeddingProvider   ProviderType  `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string        `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	OllamaURL           string        `yaml:"ollama_url,omitempty" koanf:"ollama_url"`
	OpenAIBaseURL       string        `yaml:"openai_base_url,omitempty" koanf:"openai_base_url"`
	VectorBackend       string        `yaml:"vector_backend" koanf:"vector_backend"`
	VectorDir           string        `yaml:"vector_dir" koanf:"vector_dir"`
	QdrantURL           string        `yaml:"qdrant_url,omitempty" koanf:"qdrant_url"`
	DBPath              string        `yaml:"db_path" koanf:"db_path"`
	LogLevel            string        `yaml:"log_level" koanf:"log_level"`
	LogFormat           string        `yaml:"log_format" koanf:"log_format"`
	Search              SearchConfig  `yaml:"search" koanf:"search"`
	Sync                SyncConfig    `yaml:"sync" koanf:"sync"`
	Rebuild             RebuildConfig `yaml:"rebuild" koanf:"rebuild"`
	Server              ServerConfig  `yaml:"server" koanf:"server"`
}

// SearchConfig tunes the query engine.
type SearchConfig struct {
	MinFetch      int `yaml:"min_fetch" koanf:"min_fetch"`
	MaxK          int `yaml:"max_k" koanf:"max_k"`
	SnippetLength int `yaml:"snippet_length" koanf:"snippet_length"`
}

// SyncConfig selects how row writes reach the vector store.
type SyncConfig struct {
	Mode        string `yaml:"mode" koanf:"mode"`
	Workers     int    `yaml:"workers" koanf:"workers"`
	QueueSize   int    `yaml:"queue_size" koanf:"queue_size"`
	NATSURL     string `yaml:"nats_url,omitempty" koanf:"nats_url"`
	NATSSubject string `yaml:"nats_subject" koanf:"nats_subject"`
}

// RebuildConfig holds bulk rebuild settings.
type RebuildConfig struct {
	BatchSize     int  `yaml:"batch_size" koanf:"batch_size"`
	Concurrency   int  `yaml:"concurrency" koanf:"concurrency"`
	EmbedRPM      int  `yaml:"embed_rpm" koanf:"embed_rpm"`
	FailOnPartial bool `yaml:"fail_on_partial" koanf:"fail_on_partial"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
