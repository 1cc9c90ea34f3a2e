package metrics

import (
	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/raster"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"done", "metadata_error", "extraction_error", "error"} {
		BatchesTotal.WithLabelValues(status)
	}

	for _, state := range []string{"loading-metadata", "extracting", "done", "failed"} {
		StateTransitionsTotal.WithLabelValues(state)
		JobsStored.WithLabelValues(state)
	}

	for _, f := range raster.Formats {
		ExtractionsTotal.WithLabelValues(f.Extension(), "success")
		ExtractionsTotal.WithLabelValues(f.Extension(), "error")
	}

	for _, phase := range []string{"seek", "draw", "encode"} {
		ExtractionPhaseDuration.WithLabelValues(phase)
	}

	for _, kind := range []string{"video", "image"} {
		ProbeDuration.WithLabelValues(kind)
	}

	for _, reason := range []string{"release", "expired", "shutdown"} {
		ResourcesReleasedTotal.WithLabelValues(reason)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "create_job", "update_job_state", "complete_job",
		"fail_job", "get_job", "list_jobs", "delete_job_thumbnail", "prune_jobs",
		"create_api_key", "validate_api_key", "list_api_keys", "revoke_api_key", "job_stats",
		"get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		for _, volume := range []string{filesystem.VolumeResources, filesystem.VolumeDatabase} {
			FilesystemRetryFailures.WithLabelValues(op, volume)
			FilesystemStaleErrors.WithLabelValues(op, volume)
		}
	}

	for _, status := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
