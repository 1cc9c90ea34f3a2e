package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusPaused   = "paused"
)

var startTime = time.Now()

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`

	// Transient handle and memory state
	LiveResources int     `json:"liveResources"`
	MemoryUsage   float64 `json:"memoryUsage,omitempty"`
	Admitting     bool    `json:"admitting"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It is 503 only when
// the database is unreachable; a memory pause reports "paused" with 200.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbErr := h.pingDatabase(r.Context())

	response := HealthResponse{
		Status:        statusHealthy,
		Ready:         dbErr == nil,
		Version:       startup.Version,
		Uptime:        time.Since(startTime).Round(time.Second).String(),
		Database:      "ok",
		LiveResources: h.registry.Len(),
		Admitting:     h.monitor.Admitting(),
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
		NumGoroutine:  runtime.NumGoroutine(),
	}
	if h.monitor != nil {
		response.MemoryUsage = h.monitor.Usage()
	}
	if !response.Admitting {
		response.Status = statusPaused
	}

	statusCode := http.StatusOK
	if dbErr != nil {
		response.Status = statusDegraded
		response.Database = dbErr.Error()
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONStatusCode(w, statusCode, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers and new batches
// are being admitted.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		logging.Warn("Readiness check failed: %v", err)
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	if !h.monitor.Admitting() {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "memory_pressure",
		})
		return
	}
	writeJSONStatus(w, "ready")
}

func (h *Handlers) pingDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.Ping(ctx)
}
