package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"media-thumbnailer/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// ErrVipsUnavailable is returned for WebP output when libvips was not started.
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsMu      sync.Mutex
	vipsStarted bool
)

// InitVips starts libvips once per process, bridging its log output to the
// application log level. govips cannot be restarted after ShutdownVips, so
// tests call InitVips once from an init function.
func InitVips() error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		return nil
	}

	level := vips.LogLevelWarning
	switch logging.GetLevel() {
	case logging.LevelDebug:
		level = vips.LogLevelInfo
	case logging.LevelWarn:
		level = vips.LogLevelError
	case logging.LevelError:
		level = vips.LogLevelCritical
	}

	vips.LoggingSettings(func(domain string, l vips.LogLevel, msg string) {
		switch {
		case l <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case l == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      32 * 1024 * 1024,
		MaxCacheSize:     50,
	})

	vipsStarted = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether WebP output can be produced.
func IsVipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsStarted
}

// encodeWebP hands the surface to libvips as a fast lossless PNG and exports WebP.
func encodeWebP(img image.Image, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	var staging bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&staging, img); err != nil {
		return nil, fmt.Errorf("stage surface for vips: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(staging.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.StripMetadata = true

	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("vips webp export: %w", err)
	}
	return data, nil
}
