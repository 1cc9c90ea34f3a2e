package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"media-thumbnailer/internal/logging"
)

// Volume labels used by callers for metric labeling.
const (
	VolumeResources = "resources"
	VolumeDatabase  = "database"
	VolumeInput     = "input"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Volume labels the metrics recorded for this operation. Empty means "unknown".
	Volume string
}

// DefaultRetryConfig returns the retry policy for a volume.
func DefaultRetryConfig(volume string) RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Volume:         volume,
	}
}

func (c RetryConfig) volume() string {
	if c.Volume == "" {
		return "unknown"
	}
	return c.Volume
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// StatWithRetry performs os.Stat, retrying stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, os.Stat)
}

// OpenWithRetry performs os.Open, retrying stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("open", path, config, os.Open)
}

func withRetry[T any](op, path string, config RetryConfig, fn func(string) (T, error)) (T, error) {
	start := time.Now()
	volume := config.volume()
	obs := observe()
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := fn(path)
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				obs.ObserveRetrySuccess(op, volume)
			}
			obs.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
			return v, nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			obs.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
			var zero T
			return zero, err
		}
		obs.ObserveStaleError(op, volume)

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			obs.ObserveRetryAttempt(op, volume)
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	obs.ObserveRetryFailure(op, volume)
	obs.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
	var zero T
	return zero, lastErr
}
