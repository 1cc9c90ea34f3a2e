// Package thumbnail turns a video (or still image) into a small set of
// timestamped thumbnails.
//
// A Generator call moves through idle, loading-metadata, extracting and then
// done or failed. The source is registered as a transient resource, probed
// for width, height and duration, and each requested offset is extracted on
// its own goroutine (bounded by Config.Workers). Extraction is an explicit
// two-phase protocol: the Decoder's Seek returns only once the frame at the
// offset is decoded, and only then is it drawn onto a raster surface sized
// by CalculateDimensions and encoded.
//
// The batch is fail-fast: the first failing offset cancels its siblings, the
// call waits for all of them to settle, and any thumbnails that did get
// stored are released before the error is returned. The source handle is
// released exactly once on every path.
//
// Errors are *MetadataLoadError when the source is unreadable and
// *FrameExtractionError when a single offset fails; use errors.As.
package thumbnail
