package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType is the decode path a source takes.
type FileType string

const (
	// FileTypeImage is a still image decoded in process.
	FileTypeImage FileType = "image"
	// FileTypeVideo is anything ffmpeg decodes, animated GIF included.
	FileTypeVideo FileType = "video"
	// FileTypeOther is an unrecognized or unsupported type.
	FileTypeOther FileType = "other"
)

// Generic is the content type of unidentified bytes.
const Generic = "application/octet-stream"

// MimeTypes maps lowercase file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// Normalize lowercases contentType and strips any parameters.
func Normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Classify returns the decode path for contentType.
func Classify(contentType string) FileType {
	ct := Normalize(contentType)
	switch {
	case ct == "image/gif":
		return FileTypeVideo
	case strings.HasPrefix(ct, "image/"):
		return FileTypeImage
	case strings.HasPrefix(ct, "video/"):
		return FileTypeVideo
	default:
		return FileTypeOther
	}
}

// IsStill reports whether contentType is decoded as a single still image.
func IsStill(contentType string) bool {
	return Classify(contentType) == FileTypeImage
}

// ByFilename returns the MIME type implied by name's extension, or Generic.
func ByFilename(name string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return Generic
}

// Resolve picks the most specific of a sniffed type, a declared type and the
// type implied by the filename, in that order. The result is normalized.
func Resolve(sniffed, declared, filename string) string {
	for _, ct := range []string{sniffed, declared} {
		if ct := Normalize(ct); ct != "" && ct != Generic {
			return ct
		}
	}
	return ByFilename(filename)
}
