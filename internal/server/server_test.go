package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ziadkadry99/crewmatch/internal/db"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/rebuild"
	"github.com/ziadkadry99/crewmatch/internal/records"
	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/syncer"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

func setupServer(t *testing.T, allowAll bool) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	vs, err := vectordb.NewChromemStore("")
	if err != nil {
		t.Fatal(err)
	}
	emb := embeddings.NewHashEmbedder(64)
	rs := records.NewStore(database, syncer.NewInline(emb, vs))

	return New(Config{Port: 0, AllowAll: allowAll}, Deps{
		DB:        database,
		Records:   rs,
		Vectors:   vs,
		Engine:    search.NewEngine(emb, vs, search.Options{}),
		Rebuilder: rebuild.New(rs, emb, vs, rebuild.Options{}),
	})
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t, false)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := setupServer(t, true)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestWriteThenSearch(t *testing.T) {
	srv := setupServer(t, false)
	h := srv.Router()

	for _, body := range []string{
		`{"name":"Ana Petrova","role":"electrician","primary_skills":["electrical_installation"]}`,
		`{"name":"Bruno Silva","role":"plumber","primary_skills":["plumbing_repair"]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create user: %d %s", w.Code, w.Body)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/search/users?q=plumbing+repair&k=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body)
	}
	var got []search.WorkerMatch
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 1 || got[0].Name != "Bruno Silva" {
		t.Errorf("got %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupServer(t, false)

	rb := httptest.NewRequest(http.MethodPost, "/api/admin/rebuild/all", nil)
	srv.Router().ServeHTTP(httptest.NewRecorder(), rb)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "crewmatch_collection_entries") {
		t.Error("expected crewmatch collectors in /metrics output")
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := setupServer(t, false)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
