package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ErrInvalidSurface is returned when a surface with a non-positive side is requested.
var ErrInvalidSurface = errors.New("invalid raster surface size")

// NewSurface allocates an opaque black off-screen surface of w x h pixels.
func NewSurface(w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSurface, w, h)
	}
	return imaging.New(w, h, color.Black), nil
}

// Draw scales frame to fill surface and paints it at the origin. The caller
// computes surface dimensions with the frame's aspect ratio, so the fill does
// not distort beyond the even-pixel rounding.
func Draw(surface *image.NRGBA, frame image.Image) {
	b := surface.Bounds()
	scaled := imaging.Resize(frame, b.Dx(), b.Dy(), imaging.Lanczos)
	draw.Draw(surface, b, scaled, image.Point{}, draw.Src)
}
