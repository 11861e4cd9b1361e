package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/crewmatch/internal/logctx"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// matchRequest is the incoming websocket message. Type selects which of the
// embedded argument sets is read.
type matchRequest struct {
	Type      string        `json:"type"` // search_tasks, search_users or best_workers
	RequestID string        `json:"request_id,omitempty"`
	Tasks     *TaskSearch   `json:"search_tasks,omitempty"`
	Users     *UserSearch   `json:"search_users,omitempty"`
	Workers   *WorkerSearch `json:"best_workers,omitempty"`
}

// matchResponse is the outgoing websocket message.
type matchResponse struct {
	Type      string        `json:"type"` // results or error
	RequestID string        `json:"request_id,omitempty"`
	Tasks     []TaskMatch   `json:"tasks,omitempty"`
	Workers   []WorkerMatch `json:"workers,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// MarshalJSON always writes the result array of the answered request type,
// as [] when nothing matched. Error responses carry neither array.
func (r matchResponse) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type      string         `json:"type"`
		RequestID string         `json:"request_id,omitempty"`
		Tasks     *[]TaskMatch   `json:"tasks,omitempty"`
		Workers   *[]WorkerMatch `json:"workers,omitempty"`
		Error     string         `json:"error,omitempty"`
	}
	out := wire{Type: r.Type, RequestID: r.RequestID, Error: r.Error}
	if r.Tasks != nil {
		out.Tasks = &r.Tasks
	}
	if r.Workers != nil {
		out.Workers = &r.Workers
	}
	return json.Marshal(out)
}

func handleMatchSocket(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logctx.From(r.Context())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade", "error", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("websocket read", "error", err)
				}
				return
			}

			var req matchRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				send(log, conn, matchResponse{Type: "error", Error: "invalid message format"})
				continue
			}
			send(log, conn, e.answer(r.Context(), req))
		}
	}
}

func (e *Engine) answer(ctx context.Context, req matchRequest) matchResponse {
	resp := matchResponse{Type: "results", RequestID: req.RequestID}
	var err error
	switch req.Type {
	case "search_tasks":
		if req.Tasks == nil {
			return errorResponse(req, "search_tasks arguments are required")
		}
		if req.Tasks.K == 0 {
			req.Tasks.K = DefaultK
		}
		resp.Tasks, err = e.SearchSimilarTasks(ctx, *req.Tasks)
		if resp.Tasks == nil {
			resp.Tasks = []TaskMatch{}
		}
	case "search_users":
		if req.Users == nil {
			return errorResponse(req, "search_users arguments are required")
		}
		if req.Users.K == 0 {
			req.Users.K = DefaultK
		}
		resp.Workers, err = e.SearchSimilarUsers(ctx, *req.Users)
		if resp.Workers == nil {
			resp.Workers = []WorkerMatch{}
		}
	case "best_workers":
		if req.Workers == nil {
			return errorResponse(req, "best_workers arguments are required")
		}
		if req.Workers.K == 0 {
			req.Workers.K = DefaultK
		}
		resp.Workers, err = e.FindBestWorkersForTask(ctx, *req.Workers)
		if resp.Workers == nil {
			resp.Workers = []WorkerMatch{}
		}
	default:
		return errorResponse(req, "unknown message type: "+req.Type)
	}
	if err != nil {
		return errorResponse(req, err.Error())
	}
	return resp
}

func errorResponse(req matchRequest, msg string) matchResponse {
	return matchResponse{Type: "error", RequestID: req.RequestID, Error: msg}
}

func send(log *slog.Logger, conn *websocket.Conn, resp matchResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn("websocket write", "error", err)
	}
}
