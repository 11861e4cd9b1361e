package vectordb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
)

// ChromemStore implements Store using chromem-go. Vectors are always
// computed by the caller; the collection's embedding func only exists to
// satisfy chromem.
type ChromemStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc

	mu   sync.Mutex // serializes Insert's check-then-add and dimension bookkeeping
	dims map[Collection]int
}

// NewChromemStore opens a chromem database. With a non-empty dir the
// collections are persisted as gzipped gob files under dir; otherwise the
// store lives in memory.
func NewChromemStore(dir string) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, apperr.Connectivity("open chromem", err)
		}
	}

	return &ChromemStore{
		db:        db,
		embedFunc: refuseEmbedding,
		dims:      make(map[Collection]int),
	}, nil
}

// WithEmbedder lets chromem embed raw text through e when a caller adds a
// document without a vector.
func (s *ChromemStore) WithEmbedder(e embeddings.Embedder) *ChromemStore {
	s.embedFunc = embeddings.ToChromemFunc(e)
	return s
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem store expects precomputed embeddings")
}

func (s *ChromemStore) collection(c Collection) (*chromem.Collection, error) {
	if !c.Valid() {
		return nil, apperr.Validation("chromem", "collection", fmt.Sprintf("unknown collection %q", c))
	}
	col, err := s.db.GetOrCreateCollection(string(c), nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", c, err)
	}
	return col, nil
}

// checkDimension records the first dimension seen for c and rejects
// vectors of any other length afterwards. Callers hold s.mu.
func (s *ChromemStore) checkDimension(c Collection, n int) error {
	want, ok := s.dims[c]
	if !ok {
		s.dims[c] = n
		return nil
	}
	if want != n {
		return apperr.Validation("chromem", "embedding", fmt.Sprintf("%s expects %d dimensions, got %d", c, want, n))
	}
	return nil
}

func (s *ChromemStore) Insert(ctx context.Context, c Collection, e Entry) error {
	if err := e.Validate(c); err != nil {
		return err
	}
	col, err := s.collection(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := col.GetByID(ctx, e.ID); err == nil {
		return apperr.DuplicateKey("insert "+string(c), e.ID)
	}
	if err := s.checkDimension(c, len(e.Embedding)); err != nil {
		return err
	}
	return s.add(ctx, col, e)
}

func (s *ChromemStore) Upsert(ctx context.Context, c Collection, e Entry) error {
	if err := e.Validate(c); err != nil {
		return err
	}
	col, err := s.collection(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.checkDimension(c, len(e.Embedding))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.add(ctx, col, e)
}

// add replaces any document with the same id; chromem keys documents by id.
func (s *ChromemStore) add(ctx context.Context, col *chromem.Collection, e Entry) error {
	doc := chromem.Document{
		ID:        e.ID,
		Content:   e.Text,
		Embedding: append([]float32(nil), e.Embedding...),
		Metadata:  e.Metadata.ToMap(),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem add %s: %w", e.ID, err)
	}
	return nil
}

func (s *ChromemStore) Get(ctx context.Context, c Collection, id string) (*Entry, error) {
	col, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	doc, err := col.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("get "+string(c), id)
	}
	md, err := DecodeMetadata(c, doc.Metadata)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        doc.ID,
		Text:      doc.Content,
		Embedding: doc.Embedding,
		Metadata:  md,
	}, nil
}

func (s *ChromemStore) Query(ctx context.Context, c Collection, embedding []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, apperr.Validation("query", "k", "must be positive")
	}
	if len(embedding) == 0 {
		return nil, apperr.Validation("query", "embedding", "must not be empty")
	}
	col, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	s.mu.Lock()
	want, known := s.dims[c]
	s.mu.Unlock()
	if known && want != len(embedding) {
		return nil, apperr.Validation("query", "embedding", fmt.Sprintf("%s expects %d dimensions, got %d", c, want, len(embedding)))
	}

	results, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query %s: %w", c, err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		md, err := DecodeMetadata(c, r.Metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: md,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return out, nil
}

func (s *ChromemStore) DropAndRecreate(ctx context.Context, c Collection, dimension int) error {
	if dimension <= 0 {
		return apperr.Validation("drop", "dimension", "must be positive")
	}
	if !c.Valid() {
		return apperr.Validation("drop", "collection", fmt.Sprintf("unknown collection %q", c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(string(c)); err != nil {
		return fmt.Errorf("drop %s: %w", c, err)
	}
	if _, err := s.db.CreateCollection(string(c), nil, s.embedFunc); err != nil {
		return fmt.Errorf("recreate %s: %w", c, err)
	}
	s.dims[c] = dimension
	return nil
}

func (s *ChromemStore) Count(ctx context.Context, c Collection) (int, error) {
	col, err := s.collection(c)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Reset(); err != nil {
		return fmt.Errorf("reset chromem: %w", err)
	}
	s.dims = make(map[Collection]int)
	return nil
}

// Close is a no-op; persistent collections are written on every add.
func (s *ChromemStore) Close() error { return nil }
