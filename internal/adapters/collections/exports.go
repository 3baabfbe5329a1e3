package collections

import (
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/pkg/domain"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gorilla/mux"
)

func (h *Handler) createExport(w http.ResponseWriter, r *http.Request) {
	var in exports.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	record, err := h.exports.Enqueue(r.Context(), in)
	switch {
	case errors.Is(err, exports.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"data": record})
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	record, ok := h.exports.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": record})
}

func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	record, rc, err := h.exports.Open(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "export not found")
		return
	case err != nil && record.ID != "" && record.Status != exports.StatusSucceeded:
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Type", record.Artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(record.Artifact.Key)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
