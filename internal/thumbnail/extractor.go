package thumbnail

import (
	"context"
	"errors"
	"image"
	"time"

	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/resources"
)

var errNoFrame = errors.New("decoder returned no frame")

// Metadata describes a probed source. Duration is 0 for still images.
type Metadata struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// Prober loads source metadata without decoding the stream.
type Prober interface {
	Probe(ctx context.Context, src resources.Resource) (Metadata, error)
}

// Decoder is the first phase of extraction. Seek issues a seek request for
// offset t and returns only after the seek has completed and a decoded frame
// is available; the frame is not drawn until Seek returns.
type Decoder interface {
	Seek(ctx context.Context, src resources.Resource, t float64) (image.Image, error)
}

// Frame is one encoded capture with the time spent in each phase.
type Frame struct {
	Data   []byte
	Seek   time.Duration
	Draw   time.Duration
	Encode time.Duration
}

// Extractor runs seek, draw and encode for a single offset.
type Extractor struct {
	decoder Decoder
	encode  raster.EncodeFunc
}

// NewExtractor returns an Extractor. A nil encode uses raster.Encode.
func NewExtractor(decoder Decoder, encode raster.EncodeFunc) *Extractor {
	if encode == nil {
		encode = raster.Encode
	}
	return &Extractor{decoder: decoder, encode: encode}
}

// Extract captures src at offset t, draws it on a dims-sized surface and
// encodes it with opts. Every failure is a *FrameExtractionError.
func (e *Extractor) Extract(ctx context.Context, src resources.Resource, t float64, dims Dimensions, opts Options) (Frame, error) {
	var f Frame
	fail := func(phase string, err error) (Frame, error) {
		return f, &FrameExtractionError{Offset: t, Phase: phase, Err: err}
	}

	start := time.Now()
	img, err := e.decoder.Seek(ctx, src, t)
	f.Seek = time.Since(start)
	if err != nil {
		return fail(PhaseSeek, err)
	}
	if img == nil {
		return fail(PhaseSeek, errNoFrame)
	}

	start = time.Now()
	surface, err := raster.NewSurface(dims.Width, dims.Height)
	if err != nil {
		return fail(PhaseSurface, err)
	}
	raster.Draw(surface, img)
	f.Draw = time.Since(start)

	start = time.Now()
	data, err := e.encode(surface, opts.Format, opts.Quality)
	f.Encode = time.Since(start)
	if err == nil && len(data) == 0 {
		err = raster.ErrEmptyEncoding
	}
	if err != nil {
		return fail(PhaseEncode, err)
	}

	f.Data = data
	return f, nil
}
