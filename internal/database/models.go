package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a job or key does not exist.
var ErrNotFound = errors.New("not found")

// Job states mirror the generator state machine.
const (
	JobLoadingMetadata = "loading-metadata"
	JobExtracting      = "extracting"
	JobDone            = "done"
	JobFailed          = "failed"
)

// JobOptions are the effective options a job ran with.
type JobOptions struct {
	MaxWidth  int     `json:"maxWidth"`
	MaxHeight int     `json:"maxHeight"`
	Quality   float64 `json:"quality"`
	Format    string  `json:"format"`
}

// JobSource describes the uploaded media.
type JobSource struct {
	Name        string  `json:"name"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// Job is one thumbnail batch.
type Job struct {
	ID               string         `json:"id"`
	State            string         `json:"state"`
	Source           JobSource      `json:"source"`
	RequestedOffsets []float64      `json:"requestedOffsets"`
	Options          JobOptions     `json:"options"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	Thumbnails       []JobThumbnail `json:"thumbnails"`
}

// JobThumbnail is a live handle produced by a job. Rows are deleted when the
// handle is released.
type JobThumbnail struct {
	ResourceID string  `json:"id"`
	URL        string  `json:"url"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	TimeOffset float64 `json:"timeOffset"`
	Format     string  `json:"format"`
	Size       int     `json:"size"`
}

// APIKey is a stored key. The plaintext is only returned at creation.
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	KeyHash    string     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}
