package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media-thumbnailer/internal/metrics"
)

// CreateJob records a new job in the loading-metadata state.
func (d *Database) CreateJob(ctx context.Context, id string, src JobSource, offsets []float64, opts JobOptions) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_job", start, err) }()

	if offsets == nil {
		offsets = []float64{}
	}
	encoded, err := json.Marshal(offsets)
	if err != nil {
		return fmt.Errorf("failed to encode offsets: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO jobs (id, state, source_name, content_type, source_size, requested_offsets,
			format, max_width, max_height, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, JobLoadingMetadata, src.Name, src.ContentType, src.Size, string(encoded),
		opts.Format, opts.MaxWidth, opts.MaxHeight, opts.Quality)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// UpdateJobState moves a job to state.
func (d *Database) UpdateJobState(ctx context.Context, id, state string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_job_state", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx,
		"UPDATE jobs SET state = ?, updated_at = strftime('%s', 'now') WHERE id = ?",
		state, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// CompleteJob marks a job done and stores its thumbnails in one transaction.
func (d *Database) CompleteJob(ctx context.Context, id string, src JobSource, thumbs []JobThumbnail) (err error) {
	start := time.Now()
	defer func() { recordQuery("complete_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE jobs SET state = ?, width = ?, height = ?, duration = ?, error = '',
			updated_at = strftime('%s', 'now'), completed_at = strftime('%s', 'now')
		WHERE id = ?
	`, JobDone, src.Width, src.Height, src.Duration, id)
	if err != nil {
		return err
	}
	if err = expectRow(result); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_thumbnails (resource_id, job_id, position, url, width, height, time_offset, format, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, th := range thumbs {
		if _, err = stmt.ExecContext(ctx, th.ResourceID, id, i, th.URL, th.Width, th.Height,
			th.TimeOffset, th.Format, th.Size); err != nil {
			return fmt.Errorf("failed to store thumbnail %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// FailJob marks a job failed with reason. Probed dimensions are kept when known.
func (d *Database) FailJob(ctx context.Context, id string, src JobSource, reason string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("fail_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, width = ?, height = ?, duration = ?, error = ?,
			updated_at = strftime('%s', 'now'), completed_at = strftime('%s', 'now')
		WHERE id = ?
	`, JobFailed, src.Width, src.Height, src.Duration, reason, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

const jobColumns = `id, state, source_name, content_type, source_size, width, height, duration,
	requested_offsets, format, max_width, max_height, quality, error, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job              Job
		offsets          string
		created, updated int64
		completed        sql.NullInt64
	)
	err := row.Scan(&job.ID, &job.State, &job.Source.Name, &job.Source.ContentType, &job.Source.Size,
		&job.Source.Width, &job.Source.Height, &job.Source.Duration, &offsets,
		&job.Options.Format, &job.Options.MaxWidth, &job.Options.MaxHeight, &job.Options.Quality,
		&job.Error, &created, &updated, &completed)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(offsets), &job.RequestedOffsets); err != nil {
		return nil, fmt.Errorf("corrupt offsets for job %s: %w", job.ID, err)
	}
	job.CreatedAt = time.Unix(created, 0)
	job.UpdatedAt = time.Unix(updated, 0)
	if completed.Valid {
		t := time.Unix(completed.Int64, 0)
		job.CompletedAt = &t
	}
	job.Thumbnails = []JobThumbnail{}
	return &job, nil
}

// GetJob returns a job with its live thumbnails.
func (d *Database) GetJob(ctx context.Context, id string) (*Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	job, err := scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT resource_id, url, width, height, time_offset, format, size
		FROM job_thumbnails WHERE job_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var th JobThumbnail
		if err = rows.Scan(&th.ResourceID, &th.URL, &th.Width, &th.Height, &th.TimeOffset, &th.Format, &th.Size); err != nil {
			return nil, err
		}
		job.Thumbnails = append(job.Thumbnails, th)
	}
	err = rows.Err()
	return job, err
}

// ListJobs returns the most recent jobs without thumbnails, newest first.
func (d *Database) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_jobs", start, err) }()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var job *Job
		if job, err = scanJob(rows); err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	err = rows.Err()
	return jobs, err
}

// DeleteJobThumbnail removes the row for a released handle. It reports whether
// a row existed.
func (d *Database) DeleteJobThumbnail(ctx context.Context, resourceID string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_job_thumbnail", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, "DELETE FROM job_thumbnails WHERE resource_id = ?", resourceID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// PruneJobs deletes jobs created before cutoff. It returns the resource IDs
// of thumbnails those jobs still held so the caller can release them.
func (d *Database) PruneJobs(ctx context.Context, cutoff time.Time) (resourceIDs []string, err error) {
	start := time.Now()
	defer func() { recordQuery("prune_jobs", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT t.resource_id FROM job_thumbnails t
		JOIN jobs j ON j.id = t.job_id WHERE j.created_at < ?
	`, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		resourceIDs = append(resourceIDs, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM job_thumbnails WHERE job_id IN (SELECT id FROM jobs WHERE created_at < ?)", cutoff.Unix()); err != nil {
		return nil, err
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	if n, rowsErr := result.RowsAffected(); rowsErr == nil && n > 0 {
		metrics.JobsPrunedTotal.Add(float64(n))
	}
	return resourceIDs, nil
}

// CountJobsByState returns the number of stored jobs per state.
func (d *Database) CountJobsByState(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("job_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts := make(map[string]int)
	rows, err := d.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM jobs GROUP BY state")
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var n int
		if err = rows.Scan(&state, &n); err != nil {
			return counts, err
		}
		counts[state] = n
	}
	err = rows.Err()
	return counts, err
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
