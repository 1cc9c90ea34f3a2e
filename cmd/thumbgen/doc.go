// Command thumbgen writes a thumbnail set for one local video or image.
//
// It runs the same generator as the server, without the HTTP layer or the
// job database:
//
//	thumbgen [flags] <input> <outdir>
//
// Flags:
//
//	--offsets 0,5,10   capture points in seconds (default: 0, 25%, 50%, 75%, end-0.5s)
//	--format webp      jpeg, png or webp (webp needs libvips)
//	--max-width 320    bounding box width
//	--max-height 180   bounding box height
//	--quality 0.8      encoder quality in (0, 1]
//	--workers N        concurrent extractions
//	--timeout 30s      per-offset extraction timeout
//	--debug            debug logging
//
// Files are named <input>_<index>_<offset>s.<ext>. The exit status is 2 for
// an unreadable source and 3 when a frame could not be extracted.
package main
