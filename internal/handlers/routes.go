package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes installs every API and probe route on router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Health check endpoints
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("healthz")
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.AuthMiddleware)

	api.HandleFunc("/thumbnails", h.CreateThumbnails).Methods(http.MethodPost).Name("create-thumbnails")
	api.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet).Name("list-jobs")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet).Name("get-job")
	api.HandleFunc("/resources/{id}", h.GetResource).Methods(http.MethodGet, http.MethodHead).Name("get-resource")
	api.HandleFunc("/resources/{id}", h.DeleteResource).Methods(http.MethodDelete).Name("delete-resource")
}
