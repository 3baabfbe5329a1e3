// Package collections serves the collection REST contract consumed by the
// admin screens, plus export, health and metrics endpoints.
package collections

import (
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/internal/core"
	"clinicadmin/internal/logger"
	"clinicadmin/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Collections is the service surface the handler drives.
type Collections interface {
	List(ctx context.Context, entity domain.EntityType) ([]domain.Document, error)
	Get(ctx context.Context, entity domain.EntityType, id int64) (domain.Document, error)
	Create(ctx context.Context, entity domain.EntityType, payload []byte) (domain.Document, domain.Result, error)
	Update(ctx context.Context, entity domain.EntityType, id int64, payload []byte) (domain.Document, domain.Result, error)
	Patch(ctx context.Context, entity domain.EntityType, id int64, payload []byte) (domain.Document, domain.Result, error)
	Delete(ctx context.Context, entity domain.EntityType, id int64) (domain.Result, error)
}

var _ Collections = (*core.Service)(nil)

// RequestObserver records served requests.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, d time.Duration)
}

// Option configures the router.
type Option func(*Handler)

// WithExports enables the export endpoints.
func WithExports(s exports.Scheduler) Option {
	return func(h *Handler) { h.exports = s }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMetrics records request metrics on obs and serves gatherer at /metrics.
func WithMetrics(obs RequestObserver, gatherer prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = obs
		h.gatherer = gatherer
	}
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	service  Collections
	exports  exports.Scheduler
	log      logger.Logger
	metrics  RequestObserver
	gatherer prometheus.Gatherer
}

// NewRouter builds the HTTP routes.
func NewRouter(service Collections, opts ...Option) *mux.Router {
	h := &Handler{service: service, log: logger.Nop()}
	for _, opt := range opts {
		opt(h)
	}

	r := mux.NewRouter()
	r.Use(h.requestID, h.logRequests)
	if h.metrics != nil {
		r.Use(h.observeRequests)
	}
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if h.exports != nil {
		api.HandleFunc("/exports", h.createExport).Methods(http.MethodPost)
		api.HandleFunc("/exports/{id}", h.getExport).Methods(http.MethodGet)
		api.HandleFunc("/exports/{id}/download", h.downloadExport).Methods(http.MethodGet)
	}
	api.HandleFunc("/{entity}", h.list).Methods(http.MethodGet)
	api.HandleFunc("/{entity}", h.create).Methods(http.MethodPost)
	api.HandleFunc("/{entity}/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{entity}/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	api.HandleFunc("/{entity}/{id:[0-9]+}", h.patch).Methods(http.MethodPatch)
	api.HandleFunc("/{entity}/{id:[0-9]+}", h.remove).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func entityOf(r *http.Request) domain.EntityType {
	return domain.EntityType(mux.Vars(r)["entity"])
}

func idOf(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("request body required")
	}
	if !json.Valid(body) {
		return nil, errors.New("invalid JSON body")
	}
	return body, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context(), entityOf(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.service.Get(r.Context(), entityOf(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, res, err := h.service.Create(r.Context(), entityOf(r), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(doc, res))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.Update)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.Patch)
}

type writeFunc func(ctx context.Context, entity domain.EntityType, id int64, payload []byte) (domain.Document, domain.Result, error)

func (h *Handler) write(w http.ResponseWriter, r *http.Request, fn writeFunc) {
	id, err := idOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, res, err := fn(r.Context(), entityOf(r), id, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(doc, res))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := idOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.service.Delete(r.Context(), entityOf(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func withWarnings(doc domain.Document, res domain.Result) map[string]any {
	out := map[string]any{"data": doc}
	if len(res.Violations) > 0 {
		out["violations"] = res.Violations
	}
	return out
}

// fail maps service errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *domain.ValidationError
		rv       domain.RuleViolationError
		syntax   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
		status   int
		response = map[string]any{"error": err.Error()}
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		response["fields"] = verr.Fields
	case errors.As(err, &syntax), errors.As(err, &typeErr):
		status = http.StatusBadRequest
	case errors.As(err, &rv):
		status = http.StatusConflict
		response["violations"] = rv.Result.Violations
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, core.ErrUnknownEntity):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		loggerFrom(r).Error("request failed", "err", err)
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
