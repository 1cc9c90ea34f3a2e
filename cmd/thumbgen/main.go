package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"media-thumbnailer/internal/ffmpeg"
	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/mediatypes"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/thumbnail"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

const (
	exitMetadata   = 2
	exitExtraction = 3
)

type options struct {
	offsets   []float64
	format    string
	maxWidth  int
	maxHeight int
	quality   float64
	workers   int
	timeout   time.Duration
	debug     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var metaErr *thumbnail.MetadataLoadError
	var frameErr *thumbnail.FrameExtractionError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &metaErr):
		return exitMetadata
	case errors.As(err, &frameErr):
		return exitExtraction
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "thumbgen [flags] <input> <outdir>",
		Short:        "Write timestamped thumbnails of a video or image",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				logging.SetLevel(logging.LevelDebug)
			}
			written, err := generate(cmd.Context(), args[0], args[1], opts, ffmpeg.BinariesFromEnv())
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	defaults := thumbnail.DefaultOptions()
	f := cmd.Flags()
	f.Float64SliceVar(&opts.offsets, "offsets", nil, "capture points in seconds, comma separated")
	f.StringVar(&opts.format, "format", "jpeg", "output format: jpeg, png or webp")
	f.IntVar(&opts.maxWidth, "max-width", defaults.MaxWidth, "maximum thumbnail width")
	f.IntVar(&opts.maxHeight, "max-height", defaults.MaxHeight, "maximum thumbnail height")
	f.Float64Var(&opts.quality, "quality", defaults.Quality, "encoder quality in (0, 1]")
	f.IntVar(&opts.workers, "workers", 0, "concurrent extractions (0 sizes from CPU count)")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-offset extraction timeout")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	return cmd
}

func (o *options) thumbnailOptions() (thumbnail.Options, error) {
	format, err := raster.ParseFormat(o.format)
	if err != nil {
		return thumbnail.Options{}, err
	}
	opts := thumbnail.Options{
		MaxWidth:  o.maxWidth,
		MaxHeight: o.maxHeight,
		Quality:   o.quality,
		Format:    format,
	}
	return opts, opts.Validate()
}

// generate writes one file per thumbnail into outDir and returns their paths.
func generate(ctx context.Context, input, outDir string, o *options, bin ffmpeg.Binaries) ([]string, error) {
	opts, err := o.thumbnailOptions()
	if err != nil {
		return nil, err
	}
	if opts.Format == raster.WebP {
		if err := raster.InitVips(); err != nil {
			return nil, fmt.Errorf("webp output needs libvips: %w", err)
		}
		defer raster.ShutdownVips()
	}

	src, err := filesystem.OpenWithRetry(input, filesystem.DefaultRetryConfig(filesystem.VolumeInput))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType := mediatypes.Generic
	if mt, err := mimetype.DetectReader(src); err == nil {
		contentType = mt.String()
	}
	contentType = mediatypes.Resolve(contentType, "", input)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	scratch, err := os.MkdirTemp("", "thumbgen-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	registry, err := resources.NewRegistry(scratch, time.Hour, nil)
	if err != nil {
		return nil, err
	}
	defer registry.Close()

	gen := thumbnail.NewGenerator(thumbnail.Config{
		Prober:         ffmpeg.NewProber(bin, nil),
		Decoder:        ffmpeg.NewDecoder(bin),
		Store:          registry,
		Workers:        o.workers,
		ExtractTimeout: o.timeout,
	})

	result, err := gen.Generate(ctx, thumbnail.Request{
		Source:      src,
		ContentType: contentType,
		Offsets:     o.offsets,
		Options:     opts,
	})
	if err != nil {
		return nil, err
	}
	defer gen.Release(result.Thumbnails...)

	logging.Debug("%s: %dx%d, %.2fs, %d thumbnails at %dx%d",
		input, result.Metadata.Width, result.Metadata.Height, result.Metadata.Duration,
		len(result.Thumbnails), result.Dimensions.Width, result.Dimensions.Height)

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	written := make([]string, 0, len(result.Thumbnails))
	for i, th := range result.Thumbnails {
		path := filepath.Join(outDir, outputName(base, i, th.TimeOffset, th.Format))
		if err := os.WriteFile(path, th.Data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// outputName is <base>_<index>_<offset>s.<ext>, e.g. clip_02_30.000s.jpg.
func outputName(base string, index int, offset float64, format raster.Format) string {
	return fmt.Sprintf("%s_%02d_%ss%s", base, index, strconv.FormatFloat(offset, 'f', 3, 64), format.Extension())
}
