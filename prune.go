package main

import (
	"context"
	"time"

	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/logging"
)

// handleReleaser is the part of the resource registry the pruner needs.
type handleReleaser interface {
	Release(id string) bool
}

// runPruner deletes finished jobs older than retention every pruneInterval
// until ctx is cancelled. A zero retention disables pruning.
func runPruner(ctx context.Context, db *database.Database, reg handleReleaser, retention time.Duration) {
	if retention <= 0 {
		logging.Info("Job pruning disabled (JOB_RETENTION=0)")
		return
	}

	if last, err := db.GetLastPruneRun(ctx); err == nil && !last.IsZero() {
		logging.Debug("last job prune ran at %s", last.Format(time.RFC3339))
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		if _, err := pruneOnce(ctx, db, reg, time.Now().Add(-retention)); err != nil && ctx.Err() == nil {
			logging.Warn("Job prune failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pruneOnce removes jobs finished before cutoff, releases their remaining
// thumbnail handles and returns how many handles were live.
func pruneOnce(ctx context.Context, db *database.Database, reg handleReleaser, cutoff time.Time) (int, error) {
	ids, err := db.PruneJobs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if reg.Release(id) {
			released++
		}
	}

	if err := db.SetLastPruneRun(ctx, time.Now()); err != nil {
		logging.Warn("Failed to record prune time: %v", err)
	}
	if len(ids) > 0 {
		logging.Info("Pruned jobs older than %s, released %d of %d thumbnail handles",
			cutoff.Format(time.RFC3339), released, len(ids))
	}
	return released, nil
}
