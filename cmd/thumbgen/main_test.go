package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-thumbnailer/internal/ffmpeg"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/thumbnail"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		index  int
		offset float64
		format raster.Format
		want   string
	}{
		{0, 0, raster.JPEG, "clip_00_0.000s.jpg"},
		{2, 30, raster.PNG, "clip_02_30.000s.png"},
		{11, 59.5, raster.WebP, "clip_11_59.500s.webp"},
	}
	for _, tt := range tests {
		if got := outputName("clip", tt.index, tt.offset, tt.format); got != tt.want {
			t.Errorf("outputName(%d, %v, %s) = %q, want %q", tt.index, tt.offset, tt.format, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"metadata", &thumbnail.MetadataLoadError{Err: errors.New("no stream")}, exitMetadata},
		{"wrapped extraction", errors.Join(errors.New("batch"), &thumbnail.FrameExtractionError{Offset: 3}), exitExtraction},
		{"other", errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestThumbnailOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{"defaults", options{format: "jpeg", maxWidth: 320, maxHeight: 180, quality: 0.8}, false},
		{"mime format", options{format: "image/png", maxWidth: 10, maxHeight: 10, quality: 1}, false},
		{"unknown format", options{format: "tiff", maxWidth: 10, maxHeight: 10, quality: 0.5}, true},
		{"zero width", options{format: "jpeg", maxWidth: 0, maxHeight: 10, quality: 0.5}, true},
		{"quality too high", options{format: "jpeg", maxWidth: 10, maxHeight: 10, quality: 1.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.thumbnailOptions()
			if (err != nil) != tt.wantErr {
				t.Errorf("thumbnailOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCmdArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"only-one"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil {
		t.Error("single argument accepted")
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--offsets", "1,2.5", "--format", "png", "--max-width", "64"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	offsets, err := cmd.Flags().GetFloat64Slice("offsets")
	if err != nil || len(offsets) != 2 || offsets[1] != 2.5 {
		t.Errorf("offsets = %v, %v", offsets, err)
	}
	if v, _ := cmd.Flags().GetString("format"); v != "png" {
		t.Errorf("format = %q", v)
	}
	if v, _ := cmd.Flags().GetInt("max-height"); v != 180 {
		t.Errorf("max-height default = %d", v)
	}
}

func TestGenerateStillImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 200, 100)
	outDir := filepath.Join(dir, "out")

	opts := &options{format: "jpeg", maxWidth: 50, maxHeight: 50, quality: 0.9}
	written, err := generate(context.Background(), input, outDir, opts, ffmpeg.Binaries{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("wrote %d files, want 1", len(written))
	}
	if filepath.Base(written[0]) != "photo_00_0.000s.jpg" {
		t.Errorf("file name = %q", filepath.Base(written[0]))
	}

	f, err := os.Open(written[0])
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 24 {
		t.Errorf("output size = %dx%d, want 50x24", b.Dx(), b.Dy())
	}
}

func TestGenerateUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(input, []byte("\x89PNG\r\n\x1a\nbroken"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	opts := &options{format: "jpeg", maxWidth: 50, maxHeight: 50, quality: 0.9}
	_, err := generate(context.Background(), input, filepath.Join(dir, "out"), opts, ffmpeg.Binaries{})
	if exitCode(err) != exitMetadata {
		t.Errorf("error = %v, want a metadata failure", err)
	}
}

func TestGenerateMissingInput(t *testing.T) {
	opts := &options{format: "jpeg", maxWidth: 50, maxHeight: 50, quality: 0.9}
	_, err := generate(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir(), opts, ffmpeg.Binaries{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}
