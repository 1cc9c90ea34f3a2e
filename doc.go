// Package main provides the entry point for the Media Thumbnailer service.
//
// Media Thumbnailer accepts a video (or still image) upload and returns a small
// set of thumbnails captured at chosen time offsets. Each thumbnail is held as
// a transient resource that the client fetches and then releases.
//
// # Application Lifecycle
//
// The application follows a structured initialization sequence:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Media Tools: Locates ffmpeg/ffprobe and starts libvips for WebP output
//  4. Database Initialization: Opens the SQLite job history and API key store
//  5. Component Initialization:
//     - Resource Registry: Transient handles with TTL expiry
//     - Thumbnail Generator: Probes, seeks and encodes frames concurrently
//     - Memory Monitor: Refuses new batches under memory pressure
//     - Metrics Collector: Gathers Prometheus metrics
//  6. HTTP Server Setup: Configures routes, middleware, and starts server
//  7. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Background Services
//
//   - Job Pruner: Removes jobs older than JOB_RETENTION every hour and releases
//     their remaining thumbnails
//   - Registry Janitor: Evicts handles that outlive RESOURCE_TTL
//   - Memory Monitor: Samples heap usage against the configured limit
//   - Metrics Collector: Updates Prometheus metrics every minute
//
// # HTTP API
//
//	POST   /api/thumbnails       multipart upload, returns the finished job
//	GET    /api/jobs             recent jobs
//	GET    /api/jobs/{id}        one job with its thumbnails
//	GET    /api/resources/{id}   thumbnail bytes (Range supported)
//	DELETE /api/resources/{id}   release a thumbnail
//	GET    /health /livez /readyz /version
//
// Metrics are served on METRICS_PORT when METRICS_ENABLED is true.
//
// # Related Commands
//
//   - cmd/thumbgen: one-shot CLI writing thumbnails for a local file
//   - cmd/apikey: manages API keys in the service database
package main
