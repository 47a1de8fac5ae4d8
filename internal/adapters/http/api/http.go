// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StandingsDependencies
	PlayerDependencies
	RivalryDependencies
	SnapshotDependencies
	StatsProvider
}

// Default handler limits.
const (
	defaultMaxLimit  = 1000
	defaultRate      = 1.0
	defaultBurst     = 5
	maxSnapshotBytes = 1 << 20
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	standingsHandler *StandingsHandler
	playerHandler    *PlayerHandler
	rivalryHandler   *RivalryHandler
	snapshotHandler  *SnapshotHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	dataset  model.Dataset
	maxLimit int
	rate     float64
	burst    int
	logger   logger.Logger
}

// WithDefaultDataset sets the dataset served when a request names none.
func WithDefaultDataset(d model.Dataset) ServerOption {
	return func(c *serverConfig) {
		if d != "" {
			c.dataset = d
		}
	}
}

// WithMaxLimit caps the limit query parameter of list endpoints.
func WithMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithIngestRate throttles POST /snapshots to perSec requests with burst.
func WithIngestRate(perSec float64, burst int) ServerOption {
	return func(c *serverConfig) {
		if perSec > 0 && burst > 0 {
			c.rate, c.burst = perSec, burst
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{
		dataset:  model.DatasetFull,
		maxLimit: defaultMaxLimit,
		rate:     defaultRate,
		burst:    defaultBurst,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		standingsHandler: NewStandingsHandler(deps, cfg.dataset, cfg.maxLimit),
		playerHandler:    NewPlayerHandler(deps, cfg.dataset),
		rivalryHandler:   NewRivalryHandler(deps, cfg.dataset),
		snapshotHandler:  NewSnapshotHandler(deps, cfg.rate, cfg.burst, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "players"))
	mux.HandleFunc("/rivalries", MetricsMiddleware(s.rivalryHandler.HandleGetRivalries, "rivalries"))
	mux.HandleFunc("/snapshots", MetricsMiddleware(s.snapshotHandler.HandlePostSnapshot, "snapshots"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// dataset resolves the dataset query parameter.
func dataset(r *http.Request, fallback model.Dataset) (model.Dataset, error) {
	name := r.URL.Query().Get("dataset")
	if name == "" {
		return fallback, nil
	}
	d, err := model.ParseDataset(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return d, nil
}

// limit parses the optional limit query parameter; 0 means no limit.
func limit(r *http.Request, maxLimit int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, maxLimit)
	}
	return n, nil
}

// writeReadError maps read-side service errors to responses.
func writeReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoRun):
		writeError(w, http.StatusNotFound, "not_computed", err)
	case errors.Is(err, service.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

type standingsResponse struct {
	Dataset   model.Dataset        `json:"dataset"`
	View      string               `json:"view"`
	AsOf      string               `json:"as_of"`
	Standings []analytics.Standing `json:"standings"`
}

type rivalriesResponse struct {
	Dataset model.Dataset    `json:"dataset"`
	Board   rivalry.Board    `json:"board"`
	Records []rivalry.Record `json:"records"`
}

type snapshotRequest struct {
	Text string `json:"text"`
	// Date dates a paste without a header line, YYYY-MM-DD.
	Date string `json:"date"`
}

func (s snapshotRequest) fallback() (time.Time, error) {
	if s.Date == "" {
		return time.Time{}, nil
	}
	d, err := model.ParseDay(s.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrBadRequest)
	}
	return d, nil
}
