package rebuild

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
)

type rebuildResponse struct {
	Reports []*Report `json:"reports"`
	Partial bool      `json:"partial"`
}

// RegisterRoutes mounts POST /api/admin/rebuild/{entity}, where entity is
// task, user, all or clear. Only one rebuild runs at a time through this
// route; a second request gets 409.
func RegisterRoutes(r chi.Router, b *Rebuilder) {
	var running atomic.Bool
	r.Post("/api/admin/rebuild/{entity}", func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "entity")
		run, ok := runner(b, target)
		if !ok {
			http.Error(w, "entity must be one of task, user, all, clear", http.StatusBadRequest)
			return
		}
		if !running.CompareAndSwap(false, true) {
			http.Error(w, "a rebuild is already running", http.StatusConflict)
			return
		}
		defer running.Store(false)

		reports, err := run(r.Context())
		if err != nil {
			http.Error(w, err.Error(), apperr.HTTPStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rebuildResponse{Reports: reports, Partial: AnyPartial(reports)})
	})
}

func runner(b *Rebuilder, target string) (func(context.Context) ([]*Report, error), bool) {
	switch target {
	case "all":
		return b.RebuildAll, true
	case "clear":
		return b.ClearAndRebuild, true
	}
	entity, err := canon.ParseEntityType(target)
	if err != nil {
		return nil, false
	}
	return func(ctx context.Context) ([]*Report, error) {
		r, err := b.Rebuild(ctx, entity)
		if err != nil {
			return nil, err
		}
		return []*Report{r}, nil
	}, true
}
