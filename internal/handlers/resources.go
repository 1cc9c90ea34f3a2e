package handlers

import (
	"errors"
	"net/http"

	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/resources"

	"github.com/gorilla/mux"
)

// GetResource serves the bytes behind a live handle. Released and expired
// handles are 404, like a revoked object URL.
func (h *Handlers) GetResource(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, res, err := h.registry.Open(id)
	if errors.Is(err, resources.ErrNotFound) {
		writeJSONError(w, "Resource not found", http.StatusNotFound)
		return
	}
	if err != nil {
		// The file can disappear between lookup and open when the handle
		// is released concurrently.
		logging.Debug("GetResource %s: %v", id, err)
		writeJSONError(w, "Resource not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, "", res.CreatedAt, f)
}

// DeleteResource releases a handle. Releasing an unknown or already released
// handle is 404; the first release is 204.
func (h *Handlers) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !h.registry.Release(id) {
		writeJSONError(w, "Resource not found", http.StatusNotFound)
		return
	}

	logging.Debug("Released resource %s", id)
	w.WriteHeader(http.StatusNoContent)
}
