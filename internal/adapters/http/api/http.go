// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/capflow/internal/adapters/repository"
	service "github.com/okian/capflow/internal/app"
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/internal/domain/normalize"
	"github.com/okian/capflow/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ingest(ctx context.Context, name string, data []byte) (service.DatasetInfo, error)
	List(ctx context.Context) ([]service.DatasetInfo, error)
	Delete(ctx context.Context, id string) error

	// DefaultView is the base every query-string view is layered on.
	DefaultView(ctx context.Context, id string) (model.View, error)

	Snapshot(ctx context.Context, id string, v model.View) (service.Snapshot, error)
	ShortestPath(ctx context.Context, id string, v model.View, src, dst string) ([]string, error)
	Inspect(ctx context.Context, id string, v model.View, node string) (centrality.NodeInfo, error)
	Events(ctx context.Context, id string, v *model.View) (model.Table, error)
}

const defaultMaxUploadBytes = 64 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	datasetsHandler *DatasetsHandler
}

// ServerOption configures a Server.
type ServerOption func(*DatasetsHandler)

// WithMaxUploadBytes bounds POST /datasets bodies.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(h *DatasetsHandler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		datasetsHandler: NewDatasetsHandler(deps, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	d := s.datasetsHandler

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /datasets", MetricsMiddleware(d.HandleUpload, "datasets_upload"))
	mux.HandleFunc("GET /datasets", MetricsMiddleware(d.HandleList, "datasets_list"))
	mux.HandleFunc("DELETE /datasets/{id}", MetricsMiddleware(d.HandleDelete, "datasets_delete"))
	mux.HandleFunc("GET /datasets/{id}/snapshot", MetricsMiddleware(d.HandleSnapshot, "snapshot"))
	mux.HandleFunc("GET /datasets/{id}/path", MetricsMiddleware(d.HandlePath, "path"))
	mux.HandleFunc("GET /datasets/{id}/nodes/{node}", MetricsMiddleware(d.HandleNode, "node"))
	mux.HandleFunc("GET /datasets/{id}/events.csv", MetricsMiddleware(d.HandleEventsCSV, "events_csv"))
	mux.HandleFunc("GET /datasets/{id}/events.json", MetricsMiddleware(d.HandleEventsJSON, "events_json"))
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

// writeServiceError translates domain errors into status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, normalize.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, "malformed_input", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, centrality.ErrNoPath):
		writeError(w, http.StatusNotFound, "no_path", Wrap(op, err))
	case errors.Is(err, centrality.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, "node_not_found", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}
