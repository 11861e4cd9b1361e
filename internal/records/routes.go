package records

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
)

// RegisterRoutes mounts task and user CRUD endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", handleListTasks(store))
		r.Post("/", handleCreateTask(store))
		r.Get("/{id}", handleGetTask(store))
		r.Put("/{id}", handleUpdateTask(store))
		r.Delete("/{id}", handleDeleteTask(store))
	})
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", handleListUsers(store))
		r.Post("/", handleCreateUser(store))
		r.Get("/{id}", handleGetUser(store))
		r.Put("/{id}", handleUpdateUser(store))
		r.Delete("/{id}", handleDeleteUser(store))
	})
}

func handleListTasks(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, limit := pageParams(r)
		tasks, err := store.ListTasks(r.Context(), after, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if tasks == nil {
			tasks = []Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func handleCreateTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		t.ID = 0
		if err := store.CreateTask(r.Context(), &t); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleGetTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		t, err := store.GetTask(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// handleUpdateTask decodes the body over the stored task, so omitted fields
// keep their current values.
func handleUpdateTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		body, err := readPatch(r, &Task{})
		if err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err := store.UpdateTask(r.Context(), id, func(t *Task) {
			_ = json.Unmarshal(body, t)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleDeleteTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := store.DeleteTask(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListUsers(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, limit := pageParams(r)
		users, err := store.ListUsers(r.Context(), after, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if users == nil {
			users = []User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleCreateUser(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		u.ID = 0
		if err := store.CreateUser(r.Context(), &u); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleGetUser(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		u, err := store.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleUpdateUser(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		body, err := readPatch(r, &User{})
		if err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		u, err := store.UpdateUser(r.Context(), id, func(u *User) {
			_ = json.Unmarshal(body, u)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleDeleteUser(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := store.DeleteUser(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// readPatch reads the body and checks it decodes into probe before the
// update transaction opens, so a malformed body never reaches the database.
func readPatch(r *http.Request, probe any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, probe); err != nil {
		return nil, err
	}
	return raw, nil
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (int64, int) {
	q := r.URL.Query()
	after, _ := strconv.ParseInt(q.Get("after"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	return after, limit
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), apperr.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
