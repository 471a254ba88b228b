package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mapsketch/polystore/internal/metrics"
	"github.com/mapsketch/polystore/internal/polygon"
	"github.com/mapsketch/polystore/internal/storage"
)

// PolygonService is the surface the request boundary needs from the
// cache-aside service.
type PolygonService interface {
	Create(ctx context.Context, draft polygon.Draft) (polygon.Polygon, error)
	List(ctx context.Context) ([]polygon.Polygon, error)
	Update(ctx context.Context, id int64, rev polygon.Revision) (polygon.Polygon, error)
	Delete(ctx context.Context, id int64) error
}

// createPolygonRequest is the POST /polygons body.
type createPolygonRequest struct {
	Name        string          `json:"name"`
	Coordinates []polygon.Point `json:"coordinates"`
	SessionID   string          `json:"sessionId"`
}

// updatePolygonRequest is the PUT /polygons/{id} body. SessionID is not a
// field here: it is never accepted as mutable input.
type updatePolygonRequest struct {
	Name        string          `json:"name"`
	Coordinates []polygon.Point `json:"coordinates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

const (
	msgInvalidPolygon = "Invalid polygon data"
	msgNotFound       = "Polygon not found"
	msgInternal       = "Internal server error"
	msgDeleted        = "Polygon deleted"
)

type api struct {
	svc     PolygonService
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewHandler wires the polygon routes onto a ServeMux. The mux owns method
// dispatch, so unmatched methods get 405 for free.
func NewHandler(svc PolygonService, logger *slog.Logger, recorder *metrics.Recorder) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &api{
		svc:     svc,
		logger:  logger.With(slog.String("component", "http_api")),
		metrics: recorder,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /polygons", h.create)
	mux.HandleFunc("GET /polygons", h.list)
	mux.HandleFunc("PUT /polygons/{id}", h.update)
	mux.HandleFunc("DELETE /polygons/{id}", h.delete)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

func (h *api) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req createPolygonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respond(w, "create", http.StatusBadRequest, errorResponse{Error: msgInvalidPolygon}, start)
		return
	}

	created, err := h.svc.Create(r.Context(), polygon.Draft{
		Name:        req.Name,
		Coordinates: req.Coordinates,
		SessionID:   req.SessionID,
	})
	if err != nil {
		h.respondError(w, "create", err, start)
		return
	}
	h.respond(w, "create", http.StatusCreated, created, start)
}

func (h *api) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	listing, err := h.svc.List(r.Context())
	if err != nil {
		h.respondError(w, "list", err, start)
		return
	}
	if listing == nil {
		listing = []polygon.Polygon{}
	}
	h.respond(w, "list", http.StatusOK, listing, start)
}

func (h *api) update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(r)
	if !ok {
		h.respond(w, "update", http.StatusNotFound, errorResponse{Error: msgNotFound}, start)
		return
	}

	var req updatePolygonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respond(w, "update", http.StatusBadRequest, errorResponse{Error: msgInvalidPolygon}, start)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, polygon.Revision{
		Name:        req.Name,
		Coordinates: req.Coordinates,
	})
	if err != nil {
		h.respondError(w, "update", err, start)
		return
	}
	h.respond(w, "update", http.StatusOK, updated, start)
}

func (h *api) delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(r)
	if !ok {
		h.respond(w, "delete", http.StatusNotFound, errorResponse{Error: msgNotFound}, start)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete", err, start)
		return
	}
	h.respond(w, "delete", http.StatusOK, deleteResponse{Message: msgDeleted}, start)
}

func (h *api) health(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	h.respond(w, "health", http.StatusOK, map[string]string{"status": "ok"}, start)
}

// respondError maps the service error taxonomy onto status codes. Anything
// outside the taxonomy is a transient store failure.
func (h *api) respondError(w http.ResponseWriter, operation string, err error, start time.Time) {
	switch {
	case errors.Is(err, polygon.ErrInvalid):
		h.respond(w, operation, http.StatusBadRequest, errorResponse{Error: msgInvalidPolygon}, start)
	case errors.Is(err, storage.ErrNotFound):
		h.respond(w, operation, http.StatusNotFound, errorResponse{Error: msgNotFound}, start)
	default:
		h.logger.Error("request failed",
			slog.String("operation", operation),
			slog.Any("error", err))
		h.respond(w, operation, http.StatusInternalServerError, errorResponse{Error: msgInternal}, start)
	}
}

func (h *api) respond(w http.ResponseWriter, operation string, status int, body any, start time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.Warn("response encoding failed",
				slog.String("operation", operation),
				slog.Any("error", err))
		}
	}
	h.metrics.ObserveRequest(operation, status, time.Since(start))
}

// decodeJSON decodes a request body strictly: unknown fields and trailing
// garbage are rejected at the boundary rather than silently dropped.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
