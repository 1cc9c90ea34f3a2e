package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"media-thumbnailer/internal/mediatypes"
	"media-thumbnailer/internal/resources"

	"github.com/disintegration/imaging"
)

// ErrNoFrame is returned when ffmpeg exits cleanly without writing a frame,
// usually because the offset is past the last keyframe.
var ErrNoFrame = errors.New("ffmpeg produced no frame")

// Decoder captures single frames. It implements thumbnail.Decoder.
type Decoder struct {
	bin Binaries
}

// NewDecoder returns a Decoder using bin.
func NewDecoder(bin Binaries) *Decoder {
	return &Decoder{bin: bin.withDefaults()}
}

// Seek returns the frame of src displayed at t seconds. Still images ignore t.
func (d *Decoder) Seek(ctx context.Context, src resources.Resource, t float64) (image.Image, error) {
	if mediatypes.IsStill(src.ContentType) {
		img, err := imaging.Open(src.Path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	}

	out, err := run(ctx, d.bin.FFmpeg, frameArgs(src.Path, t)...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoFrame
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg frame: %w", err)
	}
	log.Debug("frame %s@%.3f: %d bytes", src.ID, t, len(out))
	return img, nil
}

func frameArgs(path string, t float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(t, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}
