// Package metrics provides Prometheus instrumentation for the thumbnailer.
//
// All metrics are prefixed with "thumbnailer_" and registered with the default
// registry through promauto. The metrics server mounts promhttp.Handler() on
// its own port.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of requests being served
//   - UploadBytes: Histogram of uploaded source sizes
//
// ## Generator Metrics
//
//   - BatchesTotal: Counter of batches by outcome
//   - BatchDuration: Histogram of batch wall time
//   - BatchesInProgress: Gauge of batches not yet done or failed
//   - StateTransitionsTotal: Counter of state machine transitions
//   - ExtractionsTotal: Counter of single-frame extractions by format and status
//   - ExtractionPhaseDuration: Histogram of seek, draw and encode time
//   - ProbeDuration: Histogram of metadata probes by source kind
//
// ## Resource Metrics
//
//   - ResourcesLive: Gauge of transient handles held
//   - ResourcesCreatedTotal, ResourcesReleasedTotal: handle churn by reason
//
// ## Database Metrics
//
//   - DBQueryTotal, DBQueryDuration: per-operation query counts and latency
//   - DBConnectionsOpen, DBSizeBytes: connection pool and file sizes
//   - JobsStored, JobsPrunedTotal: job history size and retention
//
// # Observers
//
// Packages that must not import metrics expose observer interfaces instead.
// NewResourceObserver and NewGeneratorObserver adapt them:
//
//	reg, _ := resources.NewRegistry(dir, ttl, metrics.NewResourceObserver())
//	gen := thumbnail.NewGenerator(thumbnail.Config{Observer: metrics.NewGeneratorObserver(), ...})
//
// # Collector
//
// [Collector] periodically refreshes gauges from a [StatsProvider] (the
// database) along with database file sizes and Go memory statistics:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Batch failure ratio:
//
//	sum(rate(thumbnailer_batches_total{status!="done"}[5m])) / sum(rate(thumbnailer_batches_total[5m]))
//
// P95 seek latency:
//
//	histogram_quantile(0.95, sum(rate(thumbnailer_extraction_phase_duration_seconds_bucket{phase="seek"}[5m])) by (le))
//
// Leaked handles (should track request rate, not grow):
//
//	thumbnailer_resources_live
package metrics
