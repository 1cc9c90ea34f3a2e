package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/mediatypes"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/thumbnail"

	// Still image decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoVideoStream is returned when ffprobe finds no decodable picture stream.
var ErrNoVideoStream = errors.New("no video stream")

// ProbeObserver receives probe timings. kind is "video" or "image".
type ProbeObserver func(kind string, elapsed time.Duration, err error)

// Prober reads source metadata. It implements thumbnail.Prober.
type Prober struct {
	bin     Binaries
	observe ProbeObserver
}

// NewProber returns a Prober using bin. observe may be nil.
func NewProber(bin Binaries, observe ProbeObserver) *Prober {
	return &Prober{bin: bin.withDefaults(), observe: observe}
}

// Probe returns the picture size and duration of src.
func (p *Prober) Probe(ctx context.Context, src resources.Resource) (thumbnail.Metadata, error) {
	kind := "video"
	if mediatypes.IsStill(src.ContentType) {
		kind = "image"
	}

	start := time.Now()
	var meta thumbnail.Metadata
	var err error
	if kind == "image" {
		meta, err = probeImage(src.Path)
	} else {
		meta, err = p.probeVideo(ctx, src.Path)
	}

	if p.observe != nil {
		p.observe(kind, time.Since(start), err)
	}
	if err != nil {
		return thumbnail.Metadata{}, err
	}

	log.Debug("probed %s (%s): %dx%d %.3fs", src.ID, kind, meta.Width, meta.Height, meta.Duration)
	return meta, nil
}

func (p *Prober) probeVideo(ctx context.Context, path string) (thumbnail.Metadata, error) {
	out, err := run(ctx, p.bin.FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return thumbnail.Metadata{}, err
	}
	return parseProbeOutput(out)
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Duration    string            `json:"duration"`
	Tags        map[string]string `json:"tags"`
	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
	SideDataList []struct {
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
}

func (s probeStream) rotation() int {
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			return int(sd.Rotation)
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		r, _ := strconv.Atoi(v)
		return r
	}
	return 0
}

// parseProbeOutput extracts metadata from ffprobe JSON. Cover art streams are
// skipped. Duration comes from the container, falling back to the stream.
func parseProbeOutput(out []byte) (thumbnail.Metadata, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return thumbnail.Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range po.Streams {
		if s.CodecType != "video" || s.Disposition.AttachedPic == 1 {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			continue
		}

		meta := thumbnail.Metadata{Width: s.Width, Height: s.Height}
		if r := s.rotation(); r%180 != 0 {
			meta.Width, meta.Height = meta.Height, meta.Width
		}

		meta.Duration = parseDuration(po.Format.Duration)
		if meta.Duration == 0 {
			meta.Duration = parseDuration(s.Duration)
		}
		return meta, nil
	}
	return thumbnail.Metadata{}, ErrNoVideoStream
}

func parseDuration(s string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

func probeImage(path string) (thumbnail.Metadata, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig(filesystem.VolumeResources))
	if err != nil {
		return thumbnail.Metadata{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return thumbnail.Metadata{}, fmt.Errorf("decode image header: %w", err)
	}
	meta := thumbnail.Metadata{Width: cfg.Width, Height: cfg.Height}
	log.Debug("image header %s: %dx%d", format, cfg.Width, cfg.Height)

	// The decoder auto-orients JPEGs, so report the displayed size.
	if format != "jpeg" {
		return meta, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return thumbnail.Metadata{}, fmt.Errorf("rewind image: %w", err)
	}
	orientation, err := exifOrientation(f)
	if err != nil {
		log.Debug("ignoring unreadable exif in %s: %v", path, err)
	}
	if swapsAxes(orientation) {
		meta.Width, meta.Height = meta.Height, meta.Width
	}
	return meta, nil
}

