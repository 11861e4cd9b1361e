package search

import (
	"context"
	"testing"

	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// spyStore records the k each query asked for and returns canned results.
type spyStore struct {
	vectordb.Store
	asked   []int
	results []vectordb.SearchResult
}

func (s *spyStore) Query(_ context.Context, _ vectordb.Collection, _ []float32, k int) ([]vectordb.SearchResult, error) {
	s.asked = append(s.asked, k)
	if k < len(s.results) {
		return s.results[:k], nil
	}
	return s.results, nil
}

func task(id int64, d float64) vectordb.SearchResult {
	return vectordb.SearchResult{
		ID:       vectordb.EntryID("task", id),
		Metadata: vectordb.TaskMetadata{TaskID: id, Title: "t"},
		Distance: d,
	}
}

func TestOverFetch(t *testing.T) {
	spy := &spyStore{}
	e := NewEngine(embeddings.NewHashEmbedder(16), spy, Options{MinFetch: 20})
	ctx := context.Background()

	for _, tt := range []struct{ k, want int }{{1, 20}, {10, 20}, {15, 30}, {50, 100}} {
		spy.asked = nil
		if _, err := e.Search(ctx, Query{Collection: vectordb.TaskVectors, Text: "pour concrete", K: tt.k}); err != nil {
			t.Fatal(err)
		}
		if len(spy.asked) != 1 || spy.asked[0] != tt.want {
			t.Errorf("k=%d fetched %v, want %d", tt.k, spy.asked, tt.want)
		}
	}
}

func TestRerankIsStable(t *testing.T) {
	spy := &spyStore{results: []vectordb.SearchResult{
		task(1, 0.3), task(2, 0.1), task(3, 0.3), task(4, 0.1), task(5, 0.3),
	}}
	e := NewEngine(embeddings.NewHashEmbedder(16), spy, Options{})

	got, err := e.Search(context.Background(), Query{Collection: vectordb.TaskVectors, Embedding: []float32{1, 0}, K: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"task_2", "task_4", "task_1", "task_3"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}
