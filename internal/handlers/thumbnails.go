package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/mediatypes"
	"media-thumbnailer/internal/metrics"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/thumbnail"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// maxMemory is how much of a multipart upload is held in memory before
// spilling to a temp file.
const maxMemory = 32 << 20

// Form field names accepted by CreateThumbnails.
const (
	fieldFile      = "file"
	fieldOffsets   = "offsets"
	fieldMaxWidth  = "maxWidth"
	fieldMaxHeight = "maxHeight"
	fieldQuality   = "quality"
	fieldFormat    = "format"
)

// errBadRequest marks form problems that map to 400.
var errBadRequest = errors.New("bad request")

// CreateThumbnails accepts a multipart upload and returns the finished job
// with its thumbnail handles.
func (h *Handlers) CreateThumbnails(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.Admit() {
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "Server is under memory pressure, retry later", http.StatusServiceUnavailable)
		return
	}

	if h.maxUploadSize > 0 {
		if r.ContentLength > h.maxUploadSize {
			writeJSONError(w, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadSize), http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		writeJSONError(w, "Missing form file \"file\"", http.StatusBadRequest)
		return
	}
	defer file.Close()

	offsets, err := parseOffsets(r.FormValue(fieldOffsets))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	effective := h.generator.Defaults().Merge(opts)
	if err := effective.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if effective.Format == raster.WebP && !raster.IsVipsAvailable() {
		writeJSONError(w, "WebP output is not available on this server", http.StatusBadRequest)
		return
	}

	contentType, err := sniffContentType(file, header)
	if err != nil {
		logging.Error("Failed to read upload %q: %v", header.Filename, err)
		writeJSONError(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}
	metrics.UploadBytes.Observe(float64(header.Size))

	job := newJobRecorder(h.db, uuid.NewString(), database.JobSource{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	job.create(r.Context(), offsets, effective)

	result, err := h.generator.Generate(r.Context(), thumbnail.Request{
		Source:      file,
		ContentType: contentType,
		Offsets:     offsets,
		Options:     opts,
		Observer:    job,
	})
	if err != nil {
		job.fail(err)
		h.writeGenerateError(w, job.id, err)
		return
	}

	stored := job.complete(result)
	w.Header().Set("Location", "/api/jobs/"+job.id)
	writeJSONStatusCode(w, http.StatusCreated, stored)
}

// writeGenerateError maps generator failures onto status codes.
func (h *Handlers) writeGenerateError(w http.ResponseWriter, jobID string, err error) {
	w.Header().Set("Location", "/api/jobs/"+jobID)

	var metaErr *thumbnail.MetadataLoadError
	var frameErr *thumbnail.FrameExtractionError
	switch {
	case errors.As(err, &metaErr):
		logging.Info("Job %s: unreadable source: %v", jobID, err)
		writeJSONStatusCode(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Kind:  "metadata",
		})
	case errors.As(err, &frameErr):
		logging.Error("Job %s: %v", jobID, err)
		offset := frameErr.Offset
		writeJSONStatusCode(w, http.StatusInternalServerError, ErrorResponse{
			Error:  err.Error(),
			Kind:   "extraction",
			Offset: &offset,
		})
	case errors.Is(err, thumbnail.ErrInvalidOptions):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logging.Error("Job %s: %v", jobID, err)
		writeJSONError(w, "Thumbnail generation failed", http.StatusInternalServerError)
	}
}

// sniffContentType detects the upload type from its leading bytes and rewinds
// the file. A generic result falls back to the declared part header and then
// the filename extension.
func sniffContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mediatypes.Resolve(mt.String(), header.Header.Get("Content-Type"), header.Filename), nil
}

// parseOffsets parses a comma separated list of seconds. An empty value
// means "use the defaults".
func parseOffsets(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	offsets := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: offset %q is not a number of seconds", errBadRequest, p)
		}
		offsets = append(offsets, v)
	}
	return offsets, nil
}

// parseOptions reads the optional size, quality and format fields. Missing
// fields stay zero so the generator defaults apply.
func parseOptions(r *http.Request) (thumbnail.Options, error) {
	var opts thumbnail.Options

	for field, dst := range map[string]*int{fieldMaxWidth: &opts.MaxWidth, fieldMaxHeight: &opts.MaxHeight} {
		v := strings.TrimSpace(r.FormValue(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, field)
		}
		*dst = n
	}

	if v := strings.TrimSpace(r.FormValue(fieldQuality)); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(q) || q <= 0 || q > 1 {
			return opts, fmt.Errorf("%w: quality must be in (0, 1]", errBadRequest)
		}
		opts.Quality = q
	}

	if v := strings.TrimSpace(r.FormValue(fieldFormat)); v != "" {
		f, err := raster.ParseFormat(v)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		opts.Format = f
	}

	return opts, nil
}

// jobRecorder persists a batch as it moves through the state machine.
// Persistence failures are logged and never fail the batch.
type jobRecorder struct {
	thumbnail.NopObserver

	db *database.Database
	id string

	mu        sync.Mutex
	source    database.JobSource
	requested []float64
	created   bool
}

func newJobRecorder(db *database.Database, id string, src database.JobSource) *jobRecorder {
	return &jobRecorder{db: db, id: id, source: src}
}

// persistCtx detaches from the request so a client disconnect does not lose
// the job's final state.
func persistCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (j *jobRecorder) create(ctx context.Context, offsets []float64, opts thumbnail.Options) {
	j.requested = offsets
	err := j.db.CreateJob(ctx, j.id, j.source, offsets, database.JobOptions{
		MaxWidth:  opts.MaxWidth,
		MaxHeight: opts.MaxHeight,
		Quality:   opts.Quality,
		Format:    string(opts.Format),
	})
	if err != nil {
		logging.Error("Failed to record job %s: %v", j.id, err)
		return
	}
	j.mu.Lock()
	j.created = true
	j.mu.Unlock()
}

func (j *jobRecorder) OnTransition(t thumbnail.Transition) {
	if t.To != thumbnail.StateExtracting {
		return
	}

	j.mu.Lock()
	j.source.Width = t.Metadata.Width
	j.source.Height = t.Metadata.Height
	j.source.Duration = t.Metadata.Duration
	created := j.created
	j.mu.Unlock()

	if !created {
		return
	}
	ctx, cancel := persistCtx()
	defer cancel()
	if err := j.db.UpdateJobState(ctx, j.id, database.JobExtracting); err != nil {
		logging.Warn("Failed to update job %s state: %v", j.id, err)
	}
}

func (j *jobRecorder) snapshot() (database.JobSource, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.source, j.created
}

func (j *jobRecorder) fail(cause error) {
	src, created := j.snapshot()
	if !created {
		return
	}
	ctx, cancel := persistCtx()
	defer cancel()
	if err := j.db.FailJob(ctx, j.id, src, cause.Error()); err != nil {
		logging.Warn("Failed to record failure of job %s: %v", j.id, err)
	}
}

// complete stores the thumbnails and returns the job as the API reports it.
func (j *jobRecorder) complete(result *thumbnail.Result) database.Job {
	src, created := j.snapshot()
	requested := j.requested
	if requested == nil {
		requested = []float64{}
	}

	thumbs := make([]database.JobThumbnail, len(result.Thumbnails))
	for i, th := range result.Thumbnails {
		thumbs[i] = database.JobThumbnail{
			ResourceID: th.ResourceID,
			URL:        th.URL,
			Width:      th.Width,
			Height:     th.Height,
			TimeOffset: th.TimeOffset,
			Format:     string(th.Format),
			Size:       th.Size,
		}
	}

	now := time.Now().UTC()
	job := database.Job{
		ID:               j.id,
		State:            database.JobDone,
		Source:           src,
		RequestedOffsets: requested,
		Options: database.JobOptions{
			MaxWidth:  result.Options.MaxWidth,
			MaxHeight: result.Options.MaxHeight,
			Quality:   result.Options.Quality,
			Format:    string(result.Options.Format),
		},
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
		Thumbnails:  thumbs,
	}

	if !created {
		return job
	}

	ctx, cancel := persistCtx()
	defer cancel()
	if err := j.db.CompleteJob(ctx, j.id, src, thumbs); err != nil {
		logging.Error("Failed to store thumbnails of job %s: %v", j.id, err)
		return job
	}
	if stored, err := j.db.GetJob(ctx, j.id); err == nil {
		return *stored
	}
	return job
}
