package raster

import (
	"fmt"
	"strings"
)

// Format is an output image encoding, identified by its MIME type.
type Format string

const (
	JPEG Format = "image/jpeg"
	PNG  Format = "image/png"
	WebP Format = "image/webp"
)

// Formats lists every supported output encoding.
var Formats = []Format{JPEG, PNG, WebP}

// ParseFormat accepts a MIME type or a short name such as "jpg" or "webp".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image/jpeg", "image/jpg", "jpeg", "jpg":
		return JPEG, nil
	case "image/png", "png":
		return PNG, nil
	case "image/webp", "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Extension returns the file extension, including the leading dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PNG:
		return ".png"
	case WebP:
		return ".webp"
	}
	return ""
}

// Valid reports whether f is one of Formats.
func (f Format) Valid() bool {
	return f == JPEG || f == PNG || f == WebP
}

func (f Format) String() string {
	return string(f)
}
