package vectordb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/logctx"
)

// Payload keys reserved for the entry itself; everything else is metadata.
const (
	payloadID   = "_id"
	payloadText = "_text"
)

// pointNamespace derives stable qdrant point UUIDs from entry ids, since
// qdrant only accepts UUIDs or unsigned integers as point ids.
var pointNamespace = uuid.MustParse("6f1c2a9e-3b7d-4f0a-9c5e-2d8b1a7e4c30")

// QdrantStore implements Store on a qdrant server over gRPC.
type QdrantStore struct {
	client *qdrant.Client

	mu   sync.Mutex
	dims map[Collection]int
}

// NewQdrantStore connects to qdrant. urlStr is the HTTP URL
// (e.g. "http://localhost:6333"); the gRPC port is derived as HTTP port + 1.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: parsedURL.Scheme == "https",
	})
	if err != nil {
		return nil, apperr.Connectivity("connect qdrant", err)
	}

	return &QdrantStore{client: client, dims: make(map[Collection]int)}, nil
}

// PointID maps an entry id to the qdrant point id used for it.
func PointID(c Collection, id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(string(c)+"/"+id)).String()
}

// ensureCollection creates c with cosine distance if it does not exist yet.
func (s *QdrantStore) ensureCollection(ctx context.Context, c Collection, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if want, ok := s.dims[c]; ok {
		if want != dimension {
			return apperr.Validation("qdrant", "embedding", fmt.Sprintf("%s expects %d dimensions, got %d", c, want, dimension))
		}
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, string(c))
	if err != nil {
		return apperr.Connectivity("qdrant collection exists", err)
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, string(c))
		if err != nil {
			return apperr.Connectivity("qdrant collection info", err)
		}
		if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
			s.dims[c] = int(params.GetSize())
			if s.dims[c] != dimension {
				return apperr.Validation("qdrant", "embedding", fmt.Sprintf("%s expects %d dimensions, got %d", c, s.dims[c], dimension))
			}
		}
		return nil
	}

	logctx.From(ctx).InfoContext(ctx, "creating collection", "collection", c, "vector_size", dimension)
	if err := s.createCollection(ctx, c, dimension); err != nil {
		return err
	}
	s.dims[c] = dimension
	return nil
}

func (s *QdrantStore) createCollection(ctx context.Context, c Collection, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: string(c),
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperr.Connectivity("qdrant create collection", err)
	}
	return nil
}

func (s *QdrantStore) Insert(ctx context.Context, c Collection, e Entry) error {
	if err := e.Validate(c); err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, c, len(e.Embedding)); err != nil {
		return err
	}

	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: string(c),
		Ids:            []*qdrant.PointId{qdrant.NewID(PointID(c, e.ID))},
	})
	if err != nil {
		return apperr.Connectivity("qdrant get", err)
	}
	if len(existing) > 0 {
		return apperr.DuplicateKey("insert "+string(c), e.ID)
	}
	return s.upsert(ctx, c, e)
}

func (s *QdrantStore) Upsert(ctx context.Context, c Collection, e Entry) error {
	if err := e.Validate(c); err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, c, len(e.Embedding)); err != nil {
		return err
	}
	return s.upsert(ctx, c, e)
}

func (s *QdrantStore) upsert(ctx context.Context, c Collection, e Entry) error {
	payload := make(map[string]any, 10)
	for k, v := range e.Metadata.ToMap() {
		payload[k] = v
	}
	payload[payloadID] = e.ID
	payload[payloadText] = e.Text

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: string(c),
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(PointID(c, e.ID)),
			Vectors: qdrant.NewVectors(e.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return apperr.Connectivity("qdrant upsert", err)
	}
	return nil
}

func (s *QdrantStore) Get(ctx context.Context, c Collection, id string) (*Entry, error) {
	exists, err := s.client.CollectionExists(ctx, string(c))
	if err != nil {
		return nil, apperr.Connectivity("qdrant collection exists", err)
	}
	if !exists {
		return nil, apperr.NotFound("get "+string(c), id)
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: string(c),
		Ids:            []*qdrant.PointId{qdrant.NewID(PointID(c, id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, apperr.Connectivity("qdrant get", err)
	}
	if len(points) == 0 {
		return nil, apperr.NotFound("get "+string(c), id)
	}

	p := points[0]
	entry, err := entryFromPayload(c, p.GetPayload())
	if err != nil {
		return nil, err
	}
	entry.Embedding = p.GetVectors().GetVector().GetDenseVector().GetData()
	return entry, nil
}

func (s *QdrantStore) Query(ctx context.Context, c Collection, embedding []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, apperr.Validation("query", "k", "must be positive")
	}
	if len(embedding) == 0 {
		return nil, apperr.Validation("query", "embedding", "must not be empty")
	}

	exists, err := s.client.CollectionExists(ctx, string(c))
	if err != nil {
		return nil, apperr.Connectivity("qdrant collection exists", err)
	}
	if !exists {
		return nil, nil
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: string(c),
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Connectivity("qdrant query", err)
	}

	out := make([]SearchResult, 0, len(points))
	for _, p := range points {
		entry, err := entryFromPayload(c, p.GetPayload())
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{
			ID:       entry.ID,
			Text:     entry.Text,
			Metadata: entry.Metadata,
			Distance: 1 - float64(p.GetScore()),
		})
	}
	return out, nil
}

func (s *QdrantStore) DropAndRecreate(ctx context.Context, c Collection, dimension int) error {
	if dimension <= 0 {
		return apperr.Validation("drop", "dimension", "must be positive")
	}
	if !c.Valid() {
		return apperr.Validation("drop", "collection", fmt.Sprintf("unknown collection %q", c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dropLocked(ctx, c); err != nil {
		return err
	}
	if err := s.createCollection(ctx, c, dimension); err != nil {
		return err
	}
	s.dims[c] = dimension
	return nil
}

func (s *QdrantStore) dropLocked(ctx context.Context, c Collection) error {
	exists, err := s.client.CollectionExists(ctx, string(c))
	if err != nil {
		return apperr.Connectivity("qdrant collection exists", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, string(c)); err != nil {
			return apperr.Connectivity("qdrant delete collection", err)
		}
	}
	delete(s.dims, c)
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, c Collection) (int, error) {
	exists, err := s.client.CollectionExists(ctx, string(c))
	if err != nil {
		return 0, apperr.Connectivity("qdrant collection exists", err)
	}
	if !exists {
		return 0, nil
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: string(c),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, apperr.Connectivity("qdrant count", err)
	}
	return int(n), nil
}

func (s *QdrantStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range Collections {
		if err := s.dropLocked(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// entryFromPayload rebuilds an entry (without its vector) from a point payload.
func entryFromPayload(c Collection, payload map[string]*qdrant.Value) (*Entry, error) {
	flat := make(map[string]string, len(payload))
	for k, v := range payload {
		flat[k] = v.GetStringValue()
	}
	md, err := DecodeMetadata(c, flat)
	if err != nil {
		return nil, err
	}
	return &Entry{ID: flat[payloadID], Text: flat[payloadText], Metadata: md}, nil
}
