package thumbnail

import "fmt"

// MetadataLoadError means the source could not be read as video or image.
type MetadataLoadError struct {
	Err error
}

func (e *MetadataLoadError) Error() string {
	return fmt.Sprintf("load metadata: %v", e.Err)
}

func (e *MetadataLoadError) Unwrap() error { return e.Err }

// Extraction phases reported by FrameExtractionError.
const (
	PhaseSeek    = "seek"
	PhaseSurface = "surface"
	PhaseEncode  = "encode"
	PhaseStore   = "store"
)

// FrameExtractionError means one offset could not be turned into an image.
type FrameExtractionError struct {
	Offset float64
	Phase  string
	Err    error
}

func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("extract frame at %.3fs (%s): %v", e.Offset, e.Phase, e.Err)
}

func (e *FrameExtractionError) Unwrap() error { return e.Err }
