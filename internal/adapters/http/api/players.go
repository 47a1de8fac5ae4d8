package api

import (
	"net/http"
	"strings"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
)

// PlayerDependencies defines the interface for player reads.
type PlayerDependencies interface {
	Player(d model.Dataset, name string) (service.PlayerView, error)
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps    PlayerDependencies
	dataset model.Dataset
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies, d model.Dataset) *PlayerHandler {
	return &PlayerHandler{deps: deps, dataset: d}
}

// HandleGetPlayer handles GET /players/{name} requests.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /players/
	name := strings.TrimPrefix(r.URL.Path, "/players/")
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	d, err := dataset(r, h.dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := h.deps.Player(d, name)
	if err != nil {
		writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
