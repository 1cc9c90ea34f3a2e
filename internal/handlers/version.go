package handlers

import (
	"net/http"

	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/startup"
)

// VersionResponse is the build information plus the encoders this process
// can actually use.
type VersionResponse struct {
	startup.BuildInfo
	Formats []raster.Format `json:"formats"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		Formats:   availableFormats(),
	})
}

// availableFormats drops WebP when libvips failed to start.
func availableFormats() []raster.Format {
	formats := make([]raster.Format, 0, len(raster.Formats))
	for _, f := range raster.Formats {
		if f == raster.WebP && !raster.IsVipsAvailable() {
			continue
		}
		formats = append(formats, f)
	}
	return formats
}
