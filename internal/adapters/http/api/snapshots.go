package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
)

// SnapshotDependencies defines the interface for admitting pasted leaderboards.
type SnapshotDependencies interface {
	IngestPaste(ctx context.Context, text string, fallback time.Time) (service.IngestResult, error)
}

// SnapshotHandler handles leaderboard submissions.
type SnapshotHandler struct {
	deps    SnapshotDependencies
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewSnapshotHandler creates a new snapshot handler admitting perSec requests
// with the given burst.
func NewSnapshotHandler(deps SnapshotDependencies, perSec float64, burst int, l logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		logger:  l,
	}
}

// rejection is the body of a refused submission.
type rejection struct {
	errorResponse
	Validation *snapshot.ValidationError `json:"validation,omitempty"`
}

// HandlePostSnapshot handles POST /snapshots requests. The body is either JSON
// ({"text": ..., "date": ...}) or the raw pasted text.
func (h *SnapshotHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		return
	}

	req, err := decodeSnapshot(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	fallback, err := req.fallback()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.IngestPaste(r.Context(), req.Text, fallback)
	if err != nil {
		h.logger.Warn(r.Context(), "snapshot refused", logger.Error(err))
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func decodeSnapshot(w http.ResponseWriter, r *http.Request) (snapshotRequest, error) {
	body := http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
	var req snapshotRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	} else {
		text, err := io.ReadAll(body)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		req.Text = string(text)
		req.Date = r.URL.Query().Get("date")
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, fmt.Errorf("%w: empty leaderboard", ErrBadRequest)
	}
	return req, nil
}

func writeRejection(w http.ResponseWriter, err error) {
	reason := service.RejectReason(err)
	status := http.StatusUnprocessableEntity
	switch reason {
	case "duplicate_date":
		status = http.StatusConflict
	case "store":
		status = http.StatusInternalServerError
	}
	body := rejection{errorResponse: errorResponse{Code: reason, Message: err.Error()}}
	var verr *snapshot.ValidationError
	if errors.As(err, &verr) {
		body.Validation = verr
	}
	writeJSON(w, status, body)
}
