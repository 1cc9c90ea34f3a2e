package metrics

import (
	"errors"
	"time"

	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/thumbnail"
)

// resourceObserver implements resources.Observer.
type resourceObserver struct{}

// NewResourceObserver returns an observer that tracks live handles.
func NewResourceObserver() resources.Observer {
	return resourceObserver{}
}

func (resourceObserver) ObserveCreate(resources.Resource) {
	ResourcesCreatedTotal.Inc()
	ResourcesLive.Inc()
}

func (resourceObserver) ObserveRelease(_ resources.Resource, reason string) {
	ResourcesReleasedTotal.WithLabelValues(reason).Inc()
	ResourcesLive.Dec()
}

// generatorObserver implements thumbnail.Observer.
type generatorObserver struct{}

// NewGeneratorObserver returns an observer that records batch states and
// extraction phases.
func NewGeneratorObserver() thumbnail.Observer {
	return generatorObserver{}
}

func (generatorObserver) OnTransition(t thumbnail.Transition) {
	StateTransitionsTotal.WithLabelValues(string(t.To)).Inc()

	switch t.To {
	case thumbnail.StateLoadingMetadata:
		BatchesInProgress.Inc()
	case thumbnail.StateDone, thumbnail.StateFailed:
		BatchesInProgress.Dec()
		BatchDuration.Observe(t.Elapsed.Seconds())
		BatchesTotal.WithLabelValues(BatchStatus(t.Err)).Inc()
	}
}

func (generatorObserver) OnExtraction(r thumbnail.ExtractionReport) {
	status := "success"
	if r.Err != nil {
		status = "error"
	}
	ExtractionsTotal.WithLabelValues(r.Format.Extension(), status).Inc()

	observePhase("seek", r.Seek)
	observePhase("draw", r.Draw)
	observePhase("encode", r.Encode)
}

func observePhase(phase string, d time.Duration) {
	if d > 0 {
		ExtractionPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// BatchStatus maps a batch error to its status label.
func BatchStatus(err error) string {
	var metaErr *thumbnail.MetadataLoadError
	var frameErr *thumbnail.FrameExtractionError
	switch {
	case err == nil:
		return "done"
	case errors.As(err, &metaErr):
		return "metadata_error"
	case errors.As(err, &frameErr):
		return "extraction_error"
	default:
		return "error"
	}
}

// ObserveProbe records a metadata probe. Its signature matches
// ffmpeg.ProbeObserver.
func ObserveProbe(kind string, elapsed time.Duration, _ error) {
	ProbeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// filesystemObserver implements filesystem.Observer.
type filesystemObserver struct{}

// NewFilesystemObserver returns an observer for NFS retry activity.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveRetryAttempt(op, volume string) {
	FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetrySuccess(op, volume string) {
	FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetryFailure(op, volume string) {
	FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetryDuration(op, volume string, seconds float64) {
	FilesystemRetryDuration.WithLabelValues(op, volume).Observe(seconds)
}

func (filesystemObserver) ObserveStaleError(op, volume string) {
	FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
}
