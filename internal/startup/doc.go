// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - CACHE_DIR: uploads and thumbnails are kept under CACHE_DIR/resources (default: /cache)
//   - DATABASE_DIR: job history and API keys (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - AUTH_REQUIRED: Require an API key even when none exist yet (default: false)
//   - MAX_UPLOAD_SIZE: Upload limit, bytes or K/M/G suffix (default: 512MB)
//   - EXTRACT_TIMEOUT: Per-offset seek, draw and encode bound (default: 30s, 0 disables)
//   - EXTRACT_WORKERS: Concurrent extractions per batch (default: 1.5 x GOMAXPROCS, max 8)
//   - RESOURCE_TTL: Lifetime of unreleased handles (default: 24h)
//   - JOB_RETENTION: Age at which job history is pruned (default: 168h)
//   - THUMBNAIL_MAX_WIDTH, THUMBNAIL_MAX_HEIGHT: Default bounds (default: 320x180)
//   - THUMBNAIL_QUALITY: Default quality in (0, 1] (default: 0.8)
//   - THUMBNAIL_FORMAT: jpeg, png or webp (default: jpeg)
//   - FFMPEG_PATH, FFPROBE_PATH: Binary locations (default: PATH lookup)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// Invalid values log a warning and fall back to the default. Thumbnail
// defaults that fail validation abort startup.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogMediaToolsInit]: ffmpeg, ffprobe and libvips availability
//   - [LogMemoryConfig]: GOMEMLIMIT configuration
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
