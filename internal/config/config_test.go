package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.EmbeddingProvider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.EmbeddingProvider)
	}
	if cfg.VectorBackend != BackendChromem {
		t.Errorf("expected default backend %q, got %q", BackendChromem, cfg.VectorBackend)
	}
	if cfg.Search.MinFetch != 20 {
		t.Errorf("expected default search.min_fetch 20, got %d", cfg.Search.MinFetch)
	}
	if cfg.Sync.Mode != SyncInline {
		t.Errorf("expected default sync mode %q, got %q", SyncInline, cfg.Sync.Mode)
	}
	if !cfg.Rebuild.FailOnPartial {
		t.Error("expected rebuild.fail_on_partial to default to true")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.crewmatch.yml")

	original := DefaultConfig()
	original.EmbeddingProvider = ProviderOllama
	original.EmbeddingModel = "nomic-embed-text"
	original.EmbeddingDimensions = 768
	original.VectorBackend = BackendQdrant
	original.QdrantURL = "http://qdrant:6333"
	original.Search.MaxK = 25
	original.Sync.Mode = SyncPool
	original.Rebuild.FailOnPartial = false

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.EmbeddingProvider != original.EmbeddingProvider {
		t.Errorf("embedding_provider: got %q, want %q", loaded.EmbeddingProvider, original.EmbeddingProvider)
	}
	if loaded.EmbeddingDimensions != 768 {
		t.Errorf("embedding_dimensions: got %d, want 768", loaded.EmbeddingDimensions)
	}
	if loaded.QdrantURL != original.QdrantURL {
		t.Errorf("qdrant_url: got %q, want %q", loaded.QdrantURL, original.QdrantURL)
	}
	if loaded.Search.MaxK != 25 {
		t.Errorf("search.max_k: got %d, want 25", loaded.Search.MaxK)
	}
	if loaded.Sync.Mode != SyncPool {
		t.Errorf("sync.mode: got %q, want %q", loaded.Sync.Mode, SyncPool)
	}
	if loaded.Rebuild.FailOnPartial {
		t.Error("rebuild.fail_on_partial: got true, want false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.DBPath != DefaultConfig().DBPath {
		t.Errorf("expected default db_path, got %q", cfg.DBPath)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yml")
	if err := os.WriteFile(path, []byte("embedding_provider: hash\nsearch:\n  max_k: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.EmbeddingProvider != ProviderHash || cfg.Search.MaxK != 5 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Search.MinFetch != 20 || cfg.Rebuild.BatchSize != 100 {
		t.Errorf("defaults lost: search=%+v rebuild=%+v", cfg.Search, cfg.Rebuild)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("CREWMATCH_EMBEDDING_PROVIDER", "hash")
	t.Setenv("CREWMATCH_SEARCH__MIN_FETCH", "40")
	t.Setenv("CREWMATCH_SYNC__NATS_URL", "nats://broker:4222")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.EmbeddingProvider != ProviderHash {
		t.Errorf("env override failed: got %q, want %q", loaded.EmbeddingProvider, ProviderHash)
	}
	if loaded.Search.MinFetch != 40 {
		t.Errorf("nested env override failed: got %d, want 40", loaded.Search.MinFetch)
	}
	if loaded.Sync.NATSURL != "nats://broker:4222" {
		t.Errorf("sync.nats_url = %q", loaded.Sync.NATSURL)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CREWMATCH_DB_PATH":            "db_path",
		"CREWMATCH_SEARCH__MIN_FETCH":  "search.min_fetch",
		"CREWMATCH_REBUILD__EMBED_RPM": "rebuild.embed_rpm",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid provider", func(c *Config) { c.EmbeddingProvider = "bert" }},
		{"empty model", func(c *Config) { c.EmbeddingModel = "" }},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }},
		{"invalid backend", func(c *Config) { c.VectorBackend = "pinecone" }},
		{"qdrant without url", func(c *Config) { c.VectorBackend = BackendQdrant }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero min fetch", func(c *Config) { c.Search.MinFetch = 0 }},
		{"zero max k", func(c *Config) { c.Search.MaxK = 0 }},
		{"invalid sync mode", func(c *Config) { c.Sync.Mode = "kafka" }},
		{"pool without workers", func(c *Config) { c.Sync.Mode = SyncPool; c.Sync.Workers = 0 }},
		{"nats without url", func(c *Config) { c.Sync.Mode = SyncNATS }},
		{"zero batch size", func(c *Config) { c.Rebuild.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Rebuild.Concurrency = 0 }},
		{"negative rpm", func(c *Config) { c.Rebuild.EmbedRPM = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHashProviderNeedsNoModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingProvider = ProviderHash
	cfg.EmbeddingModel = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("hash provider without model should be valid: %v", err)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOllama, ""},
		{ProviderHash, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestDefaultModel(t *testing.T) {
	if m, d := DefaultModel(ProviderOllama); m != "nomic-embed-text" || d != 768 {
		t.Errorf("ollama default = %s/%d", m, d)
	}
	if _, d := DefaultModel("unknown"); d != 1536 {
		t.Errorf("fallback dimensions = %d", d)
	}
}

func TestPositiveInt(t *testing.T) {
	for _, s := range []string{"1", "1536"} {
		if err := positiveInt(s); err != nil {
			t.Errorf("positiveInt(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "0", "-3", "abc"} {
		if err := positiveInt(s); err == nil {
			t.Errorf("positiveInt(%q) should fail", s)
		}
	}
}
