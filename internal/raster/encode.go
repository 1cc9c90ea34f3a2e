package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// ErrEmptyEncoding is returned when an encoder produced no bytes.
var ErrEmptyEncoding = errors.New("encoder produced no data")

// EncodeFunc encodes a surface. Encode is the production implementation.
type EncodeFunc func(img image.Image, format Format, quality float64) ([]byte, error)

// Encode compresses img in the given format. quality is in [0, 1]; JPEG and
// WebP map it to 1..100, PNG maps it to a compression level.
func Encode(img image.Image, format Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(qualityPercent(quality)))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(quality)))
	case WebP:
		var data []byte
		data, err = encodeWebP(img, qualityPercent(quality))
		buf.Write(data)
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyEncoding
	}
	return buf.Bytes(), nil
}

func qualityPercent(q float64) int {
	p := int(math.Round(q * 100))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

// pngLevel trades size for speed: high quality requests favour speed since
// PNG is lossless either way.
func pngLevel(q float64) png.CompressionLevel {
	switch {
	case q >= 0.9:
		return png.BestSpeed
	case q <= 0.3:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
