package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/logging"

	"github.com/gorilla/mux"
)

// JobListResponse wraps a page of recent jobs.
type JobListResponse struct {
	Jobs  []database.Job `json:"jobs"`
	Count int            `json:"count"`
}

// ListJobs returns the most recent jobs, newest first. ?limit= caps the count.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := h.db.ListJobs(r.Context(), limit)
	if err != nil {
		logging.Error("ListJobs database error: %v", err)
		writeJSONError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []database.Job{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, JobListResponse{Jobs: jobs, Count: len(jobs)})
}

// GetJob returns one job with its live thumbnails.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.db.GetJob(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("GetJob %s database error: %v", id, err)
		writeJSONError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, job)
}
