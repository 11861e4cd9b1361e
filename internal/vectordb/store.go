package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/crewmatch/internal/embeddings"
)

// Store holds the TaskVectors and UserVectors collections.
//
// Writes are keyed: Upsert overwrites the whole entry, last writer wins.
// Query results are ordered by ascending distance and never exceed k.
type Store interface {
	// Insert adds a new entry and fails with a duplicate-key error if the id
	// already exists in c.
	Insert(ctx context.Context, c Collection, e Entry) error

	// Upsert adds or fully replaces the entry with e.ID.
	Upsert(ctx context.Context, c Collection, e Entry) error

	// Get returns a single entry, or a not-found error.
	Get(ctx context.Context, c Collection, id string) (*Entry, error)

	// Query returns up to k nearest entries to embedding. If c holds fewer
	// than k entries, all of them are returned.
	Query(ctx context.Context, c Collection, embedding []float32, k int) ([]SearchResult, error)

	// DropAndRecreate empties c and fixes its vector dimension.
	DropAndRecreate(ctx context.Context, c Collection, dimension int) error

	// Count returns the number of entries in c.
	Count(ctx context.Context, c Collection) (int, error)

	// Reset drops every collection the store manages.
	Reset(ctx context.Context) error

	Close() error
}

// Backend names accepted by New.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Options configures New.
type Options struct {
	// Dir persists the chromem backend to disk; empty means in-memory.
	Dir string
	// QdrantURL is the HTTP URL of a qdrant server, e.g. http://localhost:6333.
	QdrantURL string
	// Embedder, when set, lets the chromem backend embed raw text itself.
	Embedder embeddings.Embedder
}

// New opens the named backend.
func New(backend string, opts Options) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendChromem, "":
		s, err := NewChromemStore(opts.Dir)
		if err != nil {
			return nil, err
		}
		if opts.Embedder != nil {
			s.WithEmbedder(opts.Embedder)
		}
		return s, nil
	case BackendQdrant:
		if opts.QdrantURL == "" {
			return nil, fmt.Errorf("qdrant backend requires qdrant_url")
		}
		return NewQdrantStore(opts.QdrantURL)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}
