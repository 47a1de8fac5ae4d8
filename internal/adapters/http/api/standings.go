// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/model"
)

// Standings views.
const (
	viewActive = "active"
	viewAll    = "all"
)

// StandingsDependencies defines the interface for standings reads.
type StandingsDependencies interface {
	Standings(d model.Dataset) (analytics.Standings, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps     StandingsDependencies
	dataset  model.Dataset
	maxLimit int
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies, d model.Dataset, maxLimit int) *StandingsHandler {
	return &StandingsHandler{deps: deps, dataset: d, maxLimit: maxLimit}
}

// HandleGetStandings handles GET /standings?view=active|all&dataset=&limit=N.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	d, err := dataset(r, h.dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n, err := limit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view := r.URL.Query().Get("view")
	if view == "" {
		view = viewActive
	}
	if view != viewActive && view != viewAll {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	st, err := h.deps.Standings(d)
	if err != nil {
		writeReadError(w, err)
		return
	}
	rows := st.Active
	if view == viewAll {
		rows = st.All
	}
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	if rows == nil {
		rows = []analytics.Standing{}
	}
	writeJSON(w, http.StatusOK, standingsResponse{
		Dataset:   d,
		View:      view,
		AsOf:      model.FormatDay(st.AsOf),
		Standings: rows,
	})
}
