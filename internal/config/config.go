package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: CREWMATCH_SEARCH__MIN_FETCH sets search.min_fetch.
const EnvPrefix = "CREWMATCH_"

// DefaultPath is the config file looked up when none is given.
const DefaultPath = ".crewmatch.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CREWMATCH_*). A .env file in the working
// directory is loaded first; it never replaces variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps CREWMATCH_SYNC__NATS_URL to sync.nats_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderHash:   true,
}

var validBackends = map[string]bool{
	BackendChromem: true,
	BackendQdrant:  true,
}

var validSyncModes = map[string]bool{
	SyncInline: true,
	SyncPool:   true,
	SyncNATS:   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, ollama, hash", c.EmbeddingProvider)
	}
	if c.EmbeddingProvider != ProviderHash && c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive")
	}

	if !validBackends[c.VectorBackend] {
		return fmt.Errorf("invalid vector_backend %q: must be one of chromem, qdrant", c.VectorBackend)
	}
	if c.VectorBackend == BackendQdrant && c.QdrantURL == "" {
		return fmt.Errorf("qdrant_url is required for the qdrant backend")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if c.Search.MinFetch < 1 {
		return fmt.Errorf("search.min_fetch must be at least 1")
	}
	if c.Search.MaxK < 1 {
		return fmt.Errorf("search.max_k must be at least 1")
	}
	if c.Search.SnippetLength < 1 {
		return fmt.Errorf("search.snippet_length must be at least 1")
	}

	if !validSyncModes[c.Sync.Mode] {
		return fmt.Errorf("invalid sync.mode %q: must be one of inline, pool, nats", c.Sync.Mode)
	}
	if c.Sync.Mode == SyncPool && (c.Sync.Workers < 1 || c.Sync.QueueSize < 1) {
		return fmt.Errorf("sync.workers and sync.queue_size must be positive in pool mode")
	}
	if c.Sync.Mode == SyncNATS && c.Sync.NATSURL == "" {
		return fmt.Errorf("sync.nats_url is required in nats mode")
	}

	if c.Rebuild.BatchSize < 1 {
		return fmt.Errorf("rebuild.batch_size must be at least 1")
	}
	if c.Rebuild.Concurrency < 1 {
		return fmt.Errorf("rebuild.concurrency must be at least 1")
	}
	if c.Rebuild.EmbedRPM < 0 {
		return fmt.Errorf("rebuild.embed_rpm must be non-negative")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
