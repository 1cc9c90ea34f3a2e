package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_upload_bytes",
			Help:    "Size of uploaded source media in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)
)

// Generator metrics
var (
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_batches_total",
			Help: "Thumbnail batches by outcome",
		},
		[]string{"status"}, // "done", "metadata_error", "extraction_error", "error"
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_batch_duration_seconds",
			Help:    "Time from upload registration to batch completion",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	BatchesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_batches_in_progress",
			Help: "Number of batches currently loading metadata or extracting",
		},
	)

	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_state_transitions_total",
			Help: "Generator state machine transitions by target state",
		},
		[]string{"state"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_extractions_total",
			Help: "Single-frame extractions by format and status",
		},
		[]string{"format", "status"},
	)

	ExtractionPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_extraction_phase_duration_seconds",
			Help:    "Duration of each extraction phase",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // "seek", "draw", "encode"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_probe_duration_seconds",
			Help:    "Metadata probe duration by source kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"}, // "video", "image"
	)
)

// Resource registry metrics
var (
	ResourcesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_resources_live",
			Help: "Transient resource handles currently held",
		},
	)

	ResourcesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_resources_created_total",
			Help: "Total transient resource handles created",
		},
	)

	ResourcesReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_resources_released_total",
			Help: "Transient resource handles released by reason",
		},
		[]string{"reason"}, // "release", "expired", "shutdown"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_db_size_bytes",
			Help: "Database file size in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	JobsStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_jobs_stored",
			Help: "Jobs in the history table by state",
		},
		[]string{"state"},
	)

	JobsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_jobs_pruned_total",
			Help: "Jobs removed by retention pruning",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_attempts_total",
			Help: "Retries after a stale file handle error",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_failures_total",
			Help: "Operations that still failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_filesystem_operation_duration_seconds",
			Help:    "Duration of retried filesystem operations including backoff",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Runtime metrics
var (
	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_go_memalloc_bytes",
			Help: "Current Go heap allocation in bytes",
		},
	)

	GoMemSysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_go_memsys_bytes",
			Help: "Total memory obtained from the OS by the Go runtime",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_paused",
			Help: "1 while new batches are refused for memory pressure",
		},
	)

	MemoryRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_memory_rejects_total",
			Help: "Batches refused because of memory pressure",
		},
	)
)

// Authentication metrics
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "thumbnailer_auth_attempts_total",
		Help: "API key authentication attempts",
	},
	[]string{"status"},
)

// AppInfo carries build information as labels.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "thumbnailer_app_info",
		Help: "Application information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
