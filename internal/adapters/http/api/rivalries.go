package api

import (
	"fmt"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rivalry"
)

// RivalryDependencies defines the interface for rivalry reads.
type RivalryDependencies interface {
	Rivalries(d model.Dataset) (map[rivalry.Board][]rivalry.Record, error)
}

// RivalryHandler handles rivalry board requests.
type RivalryHandler struct {
	deps    RivalryDependencies
	dataset model.Dataset
}

// NewRivalryHandler creates a new rivalry handler.
func NewRivalryHandler(deps RivalryDependencies, d model.Dataset) *RivalryHandler {
	return &RivalryHandler{deps: deps, dataset: d}
}

// HandleGetRivalries handles GET /rivalries?board=encounters|closeness|elite.
func (h *RivalryHandler) HandleGetRivalries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dataset(r, h.dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	name := r.URL.Query().Get("board")
	if name == "" {
		name = string(rivalry.BoardEncounters)
	}
	board, ok := rivalry.ParseBoard(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown board %q", ErrBadRequest, name))
		return
	}
	boards, err := h.deps.Rivalries(d)
	if err != nil {
		writeReadError(w, err)
		return
	}
	records := boards[board]
	if records == nil {
		records = []rivalry.Record{}
	}
	writeJSON(w, http.StatusOK, rivalriesResponse{Dataset: d, Board: board, Records: records})
}
