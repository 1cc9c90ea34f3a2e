package thumbnail

import (
	"errors"
	"fmt"

	"media-thumbnailer/internal/raster"
)

// ErrInvalidOptions is wrapped by Options.Validate failures.
var ErrInvalidOptions = errors.New("invalid thumbnail options")

// Options control the size and encoding of every thumbnail in a batch.
type Options struct {
	MaxWidth  int           `json:"maxWidth"`
	MaxHeight int           `json:"maxHeight"`
	Quality   float64       `json:"quality"` // 0..1
	Format    raster.Format `json:"format"`
}

// DefaultOptions returns 320x180 JPEG at quality 0.8.
func DefaultOptions() Options {
	return Options{
		MaxWidth:  320,
		MaxHeight: 180,
		Quality:   0.8,
		Format:    raster.JPEG,
	}
}

// Merge returns o with every non-zero field of override applied. A zero
// Quality means "not set", so a caller cannot request quality 0.
func (o Options) Merge(override Options) Options {
	if override.MaxWidth != 0 {
		o.MaxWidth = override.MaxWidth
	}
	if override.MaxHeight != 0 {
		o.MaxHeight = override.MaxHeight
	}
	if override.Quality != 0 {
		o.Quality = override.Quality
	}
	if override.Format != "" {
		o.Format = override.Format
	}
	return o
}

// Validate reports the first problem with o.
func (o Options) Validate() error {
	switch {
	case o.MaxWidth <= 0 || o.MaxHeight <= 0:
		return fmt.Errorf("%w: max size %dx%d must be positive", ErrInvalidOptions, o.MaxWidth, o.MaxHeight)
	case o.Quality < 0 || o.Quality > 1:
		return fmt.Errorf("%w: quality %v outside [0, 1]", ErrInvalidOptions, o.Quality)
	case !o.Format.Valid():
		return fmt.Errorf("%w: format %q", ErrInvalidOptions, o.Format)
	}
	return nil
}
