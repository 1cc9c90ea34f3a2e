package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"media-thumbnailer/internal/resources"

	"github.com/disintegration/imaging"
)

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    [3]float64
		wantErr error
	}{
		{
			name: "format duration",
			json: `{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1920,"height":1080,"duration":"9.9"}],"format":{"duration":"10.000000"}}`,
			want: [3]float64{1920, 1080, 10},
		},
		{
			name: "stream duration fallback",
			json: `{"streams":[{"codec_type":"video","width":640,"height":480,"duration":"3.5"}],"format":{}}`,
			want: [3]float64{640, 480, 3.5},
		},
		{
			name: "rotation tag swaps",
			json: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"tags":{"rotate":"90"}}],"format":{"duration":"2"}}`,
			want: [3]float64{1080, 1920, 2},
		},
		{
			name: "side data rotation swaps",
			json: `{"streams":[{"codec_type":"video","width":1280,"height":720,"side_data_list":[{"rotation":-90}]}],"format":{"duration":"1"}}`,
			want: [3]float64{720, 1280, 1},
		},
		{
			name: "cover art skipped",
			json: `{"streams":[{"codec_type":"video","width":500,"height":500,"disposition":{"attached_pic":1}},{"codec_type":"video","width":320,"height":240}],"format":{"duration":"N/A"}}`,
			want: [3]float64{320, 240, 0},
		},
		{
			name:    "audio only",
			json:    `{"streams":[{"codec_type":"audio"}],"format":{"duration":"100"}}`,
			wantErr: ErrNoVideoStream,
		},
		{
			name:    "empty",
			json:    `{}`,
			wantErr: ErrNoVideoStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parseProbeOutput([]byte(tt.json))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbeOutput: %v", err)
			}
			got := [3]float64{float64(meta.Width), float64(meta.Height), meta.Duration}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseProbeOutputInvalidJSON(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]float64{
		"12.5":  12.5,
		" 3 ":   3,
		"N/A":   0,
		"":      0,
		"-1":    0,
		"NaN":   0,
		"+Inf":  0,
		"0.040": 0.04,
	}
	for in, want := range tests {
		if got := parseDuration(in); got != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFrameArgs(t *testing.T) {
	args := frameArgs("/tmp/in.mp4", 12.25)
	want := []string{"-hide_banner", "-loglevel", "error", "-ss", "12.250", "-i", "/tmp/in.mp4", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBinariesFromEnv(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("FFPROBE_PATH", "")

	b := BinariesFromEnv()
	if b.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" || b.FFprobe != "ffprobe" {
		t.Errorf("BinariesFromEnv = %+v", b)
	}
}

func TestCheckAvailableMissing(t *testing.T) {
	b := Binaries{FFmpeg: "/nonexistent/ffmpeg", FFprobe: "/nonexistent/ffprobe"}
	if _, err := b.CheckAvailable(context.Background()); err == nil {
		t.Error("expected error for missing binaries")
	}
}

func writeTestImage(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	img := imaging.New(w, h, color.NRGBA{G: 180, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
	return path
}

func TestProbeStillImage(t *testing.T) {
	var observed string
	p := NewProber(Binaries{}, func(kind string, _ time.Duration, _ error) { observed = kind })

	for _, ext := range []string{"png", "jpg"} {
		path := writeTestImage(t, "still."+ext, 300, 200)
		src := resources.Resource{ID: "img", Path: path, ContentType: "image/" + map[string]string{"png": "png", "jpg": "jpeg"}[ext]}

		meta, err := p.Probe(context.Background(), src)
		if err != nil {
			t.Fatalf("Probe %s: %v", ext, err)
		}
		if meta.Width != 300 || meta.Height != 200 || meta.Duration != 0 {
			t.Errorf("%s meta = %+v", ext, meta)
		}
	}
	if observed != "image" {
		t.Errorf("observer kind = %q, want image", observed)
	}
}

// writeOrientedJPEG writes a w x h JPEG whose APP1 segment carries the given
// EXIF Orientation.
func writeOrientedJPEG(t *testing.T, name string, w, h int, orientation uint16) string {
	t.Helper()

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	// Big-endian TIFF header followed by IFD0 holding only Orientation (SHORT).
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8))
	binary.Write(&tiff, binary.BigEndian, uint16(1))
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112))
	binary.Write(&tiff, binary.BigEndian, uint16(3))
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, orientation)
	binary.Write(&tiff, binary.BigEndian, uint16(0))
	binary.Write(&tiff, binary.BigEndian, uint32(0))

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write(encoded.Bytes()[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(encoded.Bytes()[2:])

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, out.Bytes(), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProbeStillImageHonoursOrientation(t *testing.T) {
	tests := []struct {
		orientation           uint16
		wantWidth, wantHeight int
	}{
		{1, 200, 100},
		{3, 200, 100},
		{5, 100, 200},
		{6, 100, 200},
		{8, 100, 200},
	}

	p := NewProber(Binaries{}, nil)
	d := NewDecoder(Binaries{})
	for _, tt := range tests {
		path := writeOrientedJPEG(t, "phone.jpg", 200, 100, tt.orientation)
		src := resources.Resource{ID: "img", Path: path, ContentType: "image/jpeg"}

		meta, err := p.Probe(context.Background(), src)
		if err != nil {
			t.Fatalf("orientation %d: Probe: %v", tt.orientation, err)
		}
		if meta.Width != tt.wantWidth || meta.Height != tt.wantHeight {
			t.Errorf("orientation %d: meta = %dx%d, want %dx%d",
				tt.orientation, meta.Width, meta.Height, tt.wantWidth, tt.wantHeight)
		}

		frame, err := d.Seek(context.Background(), src, 0)
		if err != nil {
			t.Fatalf("orientation %d: Seek: %v", tt.orientation, err)
		}
		if b := frame.Bounds(); b.Dx() != meta.Width || b.Dy() != meta.Height {
			t.Errorf("orientation %d: decoded frame %dx%d disagrees with probed %dx%d",
				tt.orientation, b.Dx(), b.Dy(), meta.Width, meta.Height)
		}
	}
}

func TestSwapsAxes(t *testing.T) {
	for o := 0; o <= 9; o++ {
		want := o >= 5 && o <= 8
		if got := swapsAxes(o); got != want {
			t.Errorf("swapsAxes(%d) = %v, want %v", o, got, want)
		}
	}
}

func TestProbeCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(path, []byte("definitely not a png"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewProber(Binaries{}, nil)
	if _, err := p.Probe(context.Background(), resources.Resource{Path: path, ContentType: "image/png"}); err == nil {
		t.Error("expected error for corrupt image")
	}
}

func TestDecoderStillImage(t *testing.T) {
	path := writeTestImage(t, "still.png", 64, 48)
	d := NewDecoder(Binaries{})

	img, err := d.Seek(context.Background(), resources.Resource{Path: path, ContentType: "image/png"}, 5)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("bounds = %v", b)
	}
}

// makeTestVideo renders a short clip with ffmpeg's test source, skipping the
// test when ffmpeg is not installed.
func makeTestVideo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command("ffmpeg", "-v", "error", "-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=10",
		"-pix_fmt", "yuv420p", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot render test clip: %v %s", err, out)
	}
	return path
}

func TestProbeAndSeekVideo(t *testing.T) {
	path := makeTestVideo(t)
	src := resources.Resource{ID: "clip", Path: path, ContentType: "video/mp4"}
	ctx := context.Background()

	meta, err := NewProber(Binaries{}, nil).Probe(ctx, src)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if meta.Width != 320 || meta.Height != 240 {
		t.Errorf("size = %dx%d, want 320x240", meta.Width, meta.Height)
	}
	if meta.Duration < 1.9 || meta.Duration > 2.1 {
		t.Errorf("duration = %v, want ~2", meta.Duration)
	}

	var img image.Image
	img, err = NewDecoder(Binaries{}).Seek(ctx, src, 1)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("frame bounds = %v", b)
	}
}

func TestProbeCorruptVideo(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	path := filepath.Join(t.TempDir(), "bad.mp4")
	if err := os.WriteFile(path, []byte("garbage bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProber(Binaries{}, nil).Probe(context.Background(), resources.Resource{Path: path, ContentType: "video/mp4"}); err == nil {
		t.Error("expected error for corrupt video")
	}
}

func TestSeekCancelled(t *testing.T) {
	path := makeTestVideo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDecoder(Binaries{}).Seek(ctx, resources.Resource{Path: path, ContentType: "video/mp4"}, 0.5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
