package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"media-thumbnailer/internal/logging"
)

var log = logging.For("ffmpeg")

// Binaries holds the executables used for probing and decoding.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// BinariesFromEnv returns FFMPEG_PATH and FFPROBE_PATH, defaulting to the bare
// command names.
func BinariesFromEnv() Binaries {
	b := Binaries{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
	if v := strings.TrimSpace(os.Getenv("FFMPEG_PATH")); v != "" {
		b.FFmpeg = v
	}
	if v := strings.TrimSpace(os.Getenv("FFPROBE_PATH")); v != "" {
		b.FFprobe = v
	}
	return b
}

func (b Binaries) withDefaults() Binaries {
	if b.FFmpeg == "" {
		b.FFmpeg = "ffmpeg"
	}
	if b.FFprobe == "" {
		b.FFprobe = "ffprobe"
	}
	return b
}

// CheckAvailable resolves both binaries and returns the first ffmpeg version
// line. It fails if either binary cannot be found.
func (b Binaries) CheckAvailable(ctx context.Context) (string, error) {
	b = b.withDefaults()

	ffmpegPath, err := exec.LookPath(b.FFmpeg)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(b.FFprobe); err != nil {
		return "", fmt.Errorf("ffprobe not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line)), nil
}

// run executes name with args and returns stdout. stderr is folded into the
// error.
func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s failed: %w - %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
