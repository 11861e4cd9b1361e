package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/ziadkadry99/crewmatch/internal/config"
	"github.com/ziadkadry99/crewmatch/internal/db"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/rebuild"
	"github.com/ziadkadry99/crewmatch/internal/records"
	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/syncer"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `crewmatch init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Everything goes to stderr so that
// stdout stays free for results and the MCP protocol.
func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logctx.New(os.Stderr, level, cfg.LogFormat)
}

// createEmbedderFromConfig creates the embedder shared by sync, search and
// rebuild. They must all use the same one.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := ""
	if v := config.APIKeyEnvVar(cfg.EmbeddingProvider); v != "" {
		apiKey = os.Getenv(v)
	}
	baseURL := cfg.OpenAIBaseURL
	if cfg.EmbeddingProvider == config.ProviderOllama {
		baseURL = cfg.OllamaURL
	}
	return embeddings.FromConfig(string(cfg.EmbeddingProvider), cfg.EmbeddingModel, cfg.EmbeddingDimensions, apiKey, baseURL)
}

// app is the set of services a command runs against.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	embedder embeddings.Embedder
	vectors  vectordb.Store
	db       *db.DB
	records  *records.Store
	engine   *search.Engine

	closers []func()
}

// openApp opens the vector store and, when withDB is set, the relational
// database with a synchronizer chosen by sync.mode.
func openApp(withDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg)}
	slog.SetDefault(a.log)

	a.embedder, err = createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	a.vectors, err = vectordb.New(cfg.VectorBackend, vectordb.Options{
		Dir:       cfg.VectorDir,
		QdrantURL: cfg.QdrantURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	a.closers = append(a.closers, func() { a.vectors.Close() })

	a.engine = search.NewEngine(a.embedder, a.vectors, search.Options{
		MinFetch:      cfg.Search.MinFetch,
		MaxK:          cfg.Search.MaxK,
		SnippetLength: cfg.Search.SnippetLength,
	})

	if !withDB {
		return a, nil
	}

	a.db, err = db.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, func() { a.db.Close() })

	sync, err := a.synchronizer()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.records = records.NewStore(a.db, sync)
	return a, nil
}

// synchronizer builds the write hook for the configured sync mode. Pool and
// NATS resources are released by Close.
func (a *app) synchronizer() (syncer.Synchronizer, error) {
	inline := syncer.NewInline(a.embedder, a.vectors)
	switch a.cfg.Sync.Mode {
	case config.SyncPool:
		pool := syncer.NewPool(inline, a.cfg.Sync.Workers, a.cfg.Sync.QueueSize)
		// Close drains the queue, so it runs before the stores close.
		a.closers = append(a.closers, pool.Close)
		return pool, nil
	case config.SyncNATS:
		nc, err := a.connectNATS()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
		return syncer.NewPublisher(nc, a.cfg.Sync.NATSSubject), nil
	default:
		return inline, nil
	}
}

func (a *app) connectNATS() (*nats.Conn, error) {
	nc, err := nats.Connect(a.cfg.Sync.NATSURL, nats.Name("crewmatch"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", a.cfg.Sync.NATSURL, err)
	}
	return nc, nil
}

// rebuilder wires a Rebuilder over the app's records. Rebuild traffic is
// throttled by rebuild.embed_rpm; live sync is not.
func (a *app) rebuilder() *rebuild.Rebuilder {
	embedder := embeddings.NewRateLimited(a.embedder, a.cfg.Rebuild.EmbedRPM)
	return rebuild.New(a.records, embedder, a.vectors, rebuild.Options{
		BatchSize:   a.cfg.Rebuild.BatchSize,
		Concurrency: a.cfg.Rebuild.Concurrency,
	})
}

// ctx returns a context carrying the app logger.
func (a *app) ctx(parent context.Context) context.Context {
	return logctx.With(parent, a.log)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
