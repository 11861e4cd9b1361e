package search

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// DefaultK is used when a request does not say how many results it wants.
const DefaultK = 10

// RegisterRoutes mounts the search endpoints, the match websocket and the
// vector inspection endpoint.
func RegisterRoutes(r chi.Router, e *Engine, store vectordb.Store) {
	r.Get("/api/search/tasks", handleSearchTasks(e))
	r.Get("/api/search/users", handleSearchUsers(e))
	r.Post("/api/search/best-workers", handleBestWorkers(e))
	r.Get("/api/vectors/{collection}/{id}", handleGetVector(store))
	r.Get("/ws/match", handleMatchSocket(e))
}

func handleSearchTasks(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s := TaskSearch{Query: q.Get("q")}
		var err error
		if s.K, err = intParam(q.Get("k"), DefaultK, "k"); err != nil {
			writeError(w, err)
			return
		}
		if s.MinDistance, err = floatParam(q.Get("min_distance"), "min_distance"); err != nil {
			writeError(w, err)
			return
		}
		if s.MaxDistance, err = floatParam(q.Get("max_distance"), "max_distance"); err != nil {
			writeError(w, err)
			return
		}

		matches, err := e.SearchSimilarTasks(r.Context(), s)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func handleSearchUsers(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s := UserSearch{
			Query:               q.Get("q"),
			RoleFilter:          q.Get("role"),
			TradeCategoryFilter: q.Get("trade_category"),
		}
		var err error
		if s.K, err = intParam(q.Get("k"), DefaultK, "k"); err != nil {
			writeError(w, err)
			return
		}
		if s.MinSimilarityScore, err = floatParam(q.Get("min_similarity"), "min_similarity"); err != nil {
			writeError(w, err)
			return
		}
		if v := q.Get("min_experience"); v != "" {
			n, err := intParam(v, 0, "min_experience")
			if err != nil {
				writeError(w, err)
				return
			}
			s.MinExperienceYears = &n
		}

		matches, err := e.SearchSimilarUsers(r.Context(), s)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func handleBestWorkers(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s WorkerSearch
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if s.K == 0 {
			s.K = DefaultK
		}
		matches, err := e.FindBestWorkersForTask(r.Context(), s)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

type vectorResponse struct {
	Collection vectordb.Collection `json:"collection"`
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	Dimensions int                 `json:"dimensions"`
	Metadata   vectordb.Metadata   `json:"metadata"`
}

func handleGetVector(store vectordb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := vectordb.ParseCollection(chi.URLParam(r, "collection"))
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := store.Get(r.Context(), c, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vectorResponse{
			Collection: c,
			ID:         entry.ID,
			Text:       entry.Text,
			Dimensions: len(entry.Embedding),
			Metadata:   entry.Metadata,
		})
	}
}

func intParam(v string, def int, name string) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("search", name, "must be an integer")
	}
	return n, nil
}

func floatParam(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperr.Validation("search", name, "must be a finite number")
	}
	return &f, nil
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), apperr.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
