package search

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	e := setupEnv(t)
	e.seedTasks(t)
	e.seedWorkers(t)
	r := chi.NewRouter()
	RegisterRoutes(r, e.engine, e.store)
	return r
}

func TestSearchTasksEndpoint(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search/tasks?q=leaking+pipe&k=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got []TaskMatch
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].TaskID != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestSearchEndpointsRejectBadParams(t *testing.T) {
	r := setupRouter(t)
	for _, path := range []string{
		"/api/search/tasks?q=x&k=zero",
		"/api/search/tasks?q=x&k=0",
		"/api/search/tasks?k=3",
		"/api/search/users?q=x&min_similarity=high",
		"/api/search/users?q=x&min_experience=-2",
		"/api/search/users?q=x&min_similarity=NaN",
		"/api/search/tasks?q=x&max_distance=NaN",
		"/api/search/tasks?q=x&min_distance=-Inf",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestBestWorkersEndpoint(t *testing.T) {
	r := setupRouter(t)

	body, _ := json.Marshal(WorkerSearch{
		Title:             "Service rooftop HVAC unit",
		SkillRequirements: []string{"hvac_repair"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/search/best-workers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got []WorkerMatch
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) == 0 || got[0].Name != "Eli Novak" {
		t.Errorf("got %+v, want Eli Novak first", got)
	}
}

func TestGetVectorEndpoint(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/vectors/users/user_2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got struct {
		Collection string         `json:"collection"`
		Text       string         `json:"text"`
		Dimensions int            `json:"dimensions"`
		Metadata   map[string]any `json:"metadata"`
	}
	json.NewDecoder(w.Body).Decode(&got)
	if got.Collection != "UserVectors" || got.Dimensions != 256 || got.Metadata["name"] != "Bruno Silva" {
		t.Errorf("got %+v", got)
	}
	if !strings.Contains(got.Text, "Primary Skills: plumbing_repair") {
		t.Errorf("text = %q", got.Text)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/vectors/TaskVectors/task_99", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d", w.Code)
	}
}

func TestMatchSocket(t *testing.T) {
	server := httptest.NewServer(setupRouter(t))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/match"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	msg := matchRequest{Type: "search_users", RequestID: "r1", Users: &UserSearch{Query: "hvac technician", K: 2}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp matchResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "results" || resp.RequestID != "r1" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Workers) != 2 || resp.Workers[0].Name != "Eli Novak" {
		t.Errorf("workers = %+v", resp.Workers)
	}

	// Nothing lies at a negative distance, so the result set is empty but
	// still sent as an array.
	below := -1.0
	if err := conn.WriteJSON(matchRequest{Type: "search_tasks", RequestID: "r2", Tasks: &TaskSearch{Query: "roof", K: 3, MaxDistance: &below}}); err != nil {
		t.Fatal(err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"tasks":[]`) || strings.Contains(string(raw), `"workers"`) {
		t.Errorf("empty task results = %s", raw)
	}

	if err := conn.WriteJSON(matchRequest{Type: "dig_trench"}); err != nil {
		t.Fatal(err)
	}
	resp = matchResponse{}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != "error" || !strings.Contains(resp.Error, "unknown message type") {
		t.Errorf("resp = %+v", resp)
	}

	if err := conn.WriteJSON(matchRequest{Type: "search_tasks", Tasks: &TaskSearch{Query: "  "}}); err != nil {
		t.Fatal(err)
	}
	resp = matchResponse{}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != "error" {
		t.Errorf("blank query should fail, got %+v", resp)
	}
}
