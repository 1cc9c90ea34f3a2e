package startup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"media-thumbnailer/internal/ffmpeg"
	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/memory"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/thumbnail"
	"media-thumbnailer/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	CacheDir        string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool
	AuthRequired    bool

	MaxUploadSize  int64
	ExtractTimeout time.Duration
	ExtractWorkers int
	ResourceTTL    time.Duration
	JobRetention   time.Duration

	// Thumbnails holds THUMBNAIL_* defaults merged under every request.
	Thumbnails thumbnail.Options

	Binaries ffmpeg.Binaries

	// Derived paths
	DatabasePath string
	ResourceDir  string
}

const (
	defaultMaxUploadSize  = 512 << 20
	defaultExtractTimeout = 30 * time.Second
	defaultResourceTTL    = 24 * time.Hour
	defaultJobRetention   = 7 * 24 * time.Hour
)

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cacheDir := getEnv("CACHE_DIR", "/cache")
	databaseDir := getEnv("DATABASE_DIR", "/database")

	defaults := thumbnail.DefaultOptions()
	config := &Config{
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		AuthRequired:    getEnvBool("AUTH_REQUIRED", false),
		MaxUploadSize:   getEnvBytes("MAX_UPLOAD_SIZE", defaultMaxUploadSize),
		ExtractTimeout:  getEnvDuration("EXTRACT_TIMEOUT", defaultExtractTimeout),
		ExtractWorkers:  workers.ForMixed(8),
		ResourceTTL:     getEnvDuration("RESOURCE_TTL", defaultResourceTTL),
		JobRetention:    getEnvDuration("JOB_RETENTION", defaultJobRetention),
		Thumbnails: thumbnail.Options{
			MaxWidth:  getEnvInt("THUMBNAIL_MAX_WIDTH", defaults.MaxWidth),
			MaxHeight: getEnvInt("THUMBNAIL_MAX_HEIGHT", defaults.MaxHeight),
			Quality:   getEnvFloat("THUMBNAIL_QUALITY", defaults.Quality),
			Format:    getEnvFormat("THUMBNAIL_FORMAT", defaults.Format),
		},
		Binaries: ffmpeg.BinariesFromEnv(),
	}

	if err := config.Thumbnails.Validate(); err != nil {
		return nil, fmt.Errorf("thumbnail defaults: %w", err)
	}

	logging.Info("  CACHE_DIR:            %s", cacheDir)
	logging.Info("  DATABASE_DIR:         %s", databaseDir)
	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_PORT:         %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  AUTH_REQUIRED:        %v", config.AuthRequired)
	logging.Info("  MAX_UPLOAD_SIZE:      %s", memory.FormatBytes(config.MaxUploadSize))
	logging.Info("  EXTRACT_TIMEOUT:      %v", config.ExtractTimeout)
	logging.Info("  EXTRACT_WORKERS:      %d", config.ExtractWorkers)
	logging.Info("  RESOURCE_TTL:         %v", config.ResourceTTL)
	logging.Info("  JOB_RETENTION:        %v", config.JobRetention)
	logging.Info("  THUMBNAIL_MAX_WIDTH:  %d", config.Thumbnails.MaxWidth)
	logging.Info("  THUMBNAIL_MAX_HEIGHT: %d", config.Thumbnails.MaxHeight)
	logging.Info("  THUMBNAIL_QUALITY:    %.2f", config.Thumbnails.Quality)
	logging.Info("  THUMBNAIL_FORMAT:     %s", config.Thumbnails.Format)
	logging.Info("  FFMPEG_PATH:          %s", config.Binaries.FFmpeg)
	logging.Info("  FFPROBE_PATH:         %s", config.Binaries.FFprobe)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	if cacheDir, err = filepath.Abs(cacheDir); err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	if databaseDir, err = filepath.Abs(databaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	config.CacheDir = cacheDir
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "thumbnailer.db")
	config.ResourceDir = filepath.Join(cacheDir, "resources")

	if err := ensureDirectory(databaseDir, filesystem.VolumeDatabase); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// Uploads and thumbnails live here, so unlike the database it has no
	// fallback.
	if err := ensureDirectory(config.ResourceDir, filesystem.VolumeResources); err != nil {
		return nil, fmt.Errorf("resource directory error: %w", err)
	}
	if err := testWriteAccess(config.ResourceDir); err != nil {
		return nil, fmt.Errorf("resource directory is not writable: %w", err)
	}
	logging.Info("  [OK] Resource directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    API keys:    %s", requiredString(config.AuthRequired))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func requiredString(required bool) string {
	if required {
		return "REQUIRED"
	}
	return "WHEN CONFIGURED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogMediaToolsInit checks ffmpeg and ffprobe and reports the WebP encoder.
// It returns the ffmpeg availability error, if any.
func LogMediaToolsInit(bin ffmpeg.Binaries) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA TOOLS")
	logging.Info("------------------------------------------------------------")

	version, err := bin.CheckAvailable(context.Background())
	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video sources will fail with a metadata error")
	} else {
		logging.Info("  [OK] %s", version)
	}

	if raster.IsVipsAvailable() {
		logging.Info("  [OK] libvips available, WebP output enabled")
	} else {
		logging.Warn("  libvips unavailable, WebP output will fail")
	}
	return err
}

// LogMemoryConfig logs how GOMEMLIMIT was configured.
func LogMemoryConfig(res memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	switch res.Source {
	case "MEMORY_LIMIT":
		logging.Info("  GOMEMLIMIT: %s (%.0f%% of %s)", memory.FormatBytes(res.GoMemLimit), res.Ratio*100, memory.FormatBytes(res.ContainerLimit))
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT: %s (from environment)", memory.FormatBytes(res.GoMemLimit))
	default:
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable backpressure)")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api/thumbnails", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
  _   _                 _                 _ _
 | |_| |__  _   _ _ __ | |__  _ __   __ _(_) | ___ _ __
 | __| '_ \| | | | '_ \| '_ \| '_ \ / _' | | |/ _ \ '__|
 | |_| | | | |_| | | | | |_) | | | | (_| | | |  __/ |
  \__|_| |_|\__,_|_| |_|_.__/|_| |_|\__,_|_|_|\___|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig(name))
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
