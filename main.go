package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/ffmpeg"
	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/handlers"
	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/memory"
	"media-thumbnailer/internal/metrics"
	"media-thumbnailer/internal/middleware"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/startup"
	"media-thumbnailer/internal/thumbnail"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
	pruneInterval     = time.Hour
)

func main() {
	startTime := time.Now()

	// Memory limit must be set before anything allocates heavily
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	if err := raster.InitVips(); err != nil {
		logging.Warn("libvips unavailable: %v", err)
	}
	if err := startup.LogMediaToolsInit(config.Binaries); err != nil {
		logging.Warn("Continuing without a working ffmpeg; only still images can be processed")
	}

	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	registry, err := resources.NewRegistry(config.ResourceDir, config.ResourceTTL, metrics.NewResourceObserver())
	if err != nil {
		startup.LogFatal("Failed to initialize resource registry: %v", err)
	}
	registry.OnRelease(func(res resources.Resource) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := db.DeleteJobThumbnail(ctx, res.ID); err != nil {
			logging.Warn("Failed to forget released thumbnail %s: %v", res.ID, err)
		}
	})

	generator := thumbnail.NewGenerator(thumbnail.Config{
		Prober:         ffmpeg.NewProber(config.Binaries, metrics.ObserveProbe),
		Decoder:        ffmpeg.NewDecoder(config.Binaries),
		Store:          registry,
		Defaults:       config.Thumbnails,
		Workers:        config.ExtractWorkers,
		ExtractTimeout: config.ExtractTimeout,
		Observer:       metrics.NewGeneratorObserver(),
	})

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	collector := metrics.NewCollector(db, config.DatabasePath, collectorInterval)
	collector.Start()

	pruneCtx, stopPruner := context.WithCancel(context.Background())
	var pruneWG sync.WaitGroup
	pruneWG.Add(1)
	go func() {
		defer pruneWG.Done()
		runPruner(pruneCtx, db, registry, config.JobRetention)
	}()

	h := handlers.New(db, generator, registry, monitor, config)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           wrapHandler(router, config),
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and batches can take minutes; per-offset work is bounded by EXTRACT_TIMEOUT.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, func() {
		startup.LogShutdownStep("Stopping background workers")
		stopPruner()
		pruneWG.Wait()
		collector.Stop()
		monitor.Stop()
		startup.LogShutdownStepComplete("Background workers stopped")

		startup.LogShutdownStep("Releasing resource handles")
		live := registry.Len()
		registry.Close()
		startup.LogShutdownStepComplete("Released resource handles")
		logging.Debug("released %d live handles", live)

		startup.LogShutdownStep("Closing database")
		if err := db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}

		raster.ShutdownVips()
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-shutdownDone
	startup.LogShutdownComplete()
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	// Route templates are only known inside the router
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
	return r
}

// wrapHandler applies the outer middleware chain: request IDs, access log
// and compression, outermost first.
func wrapHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = middleware.Logger(loggingConfig)(handler)
	return middleware.RequestID(handler)
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// shutdownDone is closed once cleanup has finished, so main does not
// return while handles are still being released.
var shutdownDone = make(chan struct{})

func handleShutdown(srv, metricsSrv *http.Server, cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	defer close(shutdownDone)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	cleanup()
}
