// Package mediatypes classifies source media by content type.
//
// It has no dependencies beyond the standard library so that ffmpeg,
// handlers and the CLIs can share one notion of which inputs are stills and
// which need ffmpeg:
//
//	switch mediatypes.Classify(contentType) {
//	case mediatypes.FileTypeImage:
//	    // decode in process, duration 0
//	case mediatypes.FileTypeVideo:
//	    // probe and seek with ffmpeg
//	}
//
// Animated GIF is treated as video so its frames can be sought.
//
// Resolve combines the sniffed type, the declared type and the filename
// extension when content sniffing only reports application/octet-stream.
package mediatypes
