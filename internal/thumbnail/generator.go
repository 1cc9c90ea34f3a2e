package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/raster"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/workers"

	"golang.org/x/sync/errgroup"
)

var log = logging.For("thumbnail")

// Store registers transient handles. *resources.Registry implements it.
type Store interface {
	Put(r io.Reader, contentType string) (resources.Resource, error)
	Release(id string) bool
}

// Thumbnail is one encoded capture. URL stays valid until the handle is
// released through Generator.Release or the registry's DELETE endpoint.
type Thumbnail struct {
	URL        string        `json:"url"`
	ResourceID string        `json:"id"`
	Data       []byte        `json:"-"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	TimeOffset float64       `json:"timeOffset"`
	Format     raster.Format `json:"format"`
	Size       int           `json:"size"`
}

// Config wires a Generator.
type Config struct {
	Prober  Prober
	Decoder Decoder
	Store   Store

	// Encode defaults to raster.Encode.
	Encode raster.EncodeFunc

	// Defaults are merged under each request's options. Zero means DefaultOptions.
	Defaults Options

	// Workers bounds concurrent extractions per batch. Zero sizes it with
	// workers.ForMixed(8).
	Workers int

	// ExtractTimeout bounds each offset's seek, draw and encode. Zero disables it.
	ExtractTimeout time.Duration

	// Observer receives events for every batch.
	Observer Observer
}

// Request is a single Generate call.
type Request struct {
	Source      io.Reader
	ContentType string

	// Offsets in seconds. nil, empty or [0] means DefaultOffsets.
	Offsets []float64

	Options  Options
	Observer Observer
}

// Result is a completed batch. Thumbnails are in Offsets order.
type Result struct {
	Source     resources.Resource
	Metadata   Metadata
	Dimensions Dimensions
	Offsets    []float64
	Options    Options
	Thumbnails []Thumbnail
}

// Generator produces thumbnail sets.
type Generator struct {
	prober    Prober
	extractor *Extractor
	store     Store
	defaults  Options
	workers   int
	timeout   time.Duration
	observer  Observer
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg Config) *Generator {
	defaults := cfg.Defaults
	if defaults == (Options{}) {
		defaults = DefaultOptions()
	} else {
		defaults = DefaultOptions().Merge(defaults)
	}

	n := cfg.Workers
	if n <= 0 {
		n = workers.ForMixed(8)
	}

	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	return &Generator{
		prober:    cfg.Prober,
		extractor: NewExtractor(cfg.Decoder, cfg.Encode),
		store:     cfg.Store,
		defaults:  defaults,
		workers:   n,
		timeout:   cfg.ExtractTimeout,
		observer:  obs,
	}
}

// Defaults returns the options applied under every request.
func (g *Generator) Defaults() Options {
	return g.defaults
}

// batch tracks one Generate call through the state machine.
type batch struct {
	mu      sync.Mutex
	state   State
	started time.Time
	obs     Observer
	meta    Metadata
	offsets []float64
}

func (b *batch) to(next State, err error) {
	b.mu.Lock()
	prev := b.state
	if !CanTransition(prev, next) {
		b.mu.Unlock()
		log.Error("illegal state transition %s -> %s", prev, next)
		return
	}
	b.state = next
	t := Transition{
		From:     prev,
		To:       next,
		Metadata: b.meta,
		Offsets:  b.offsets,
		Err:      err,
		Elapsed:  time.Since(b.started),
	}
	b.mu.Unlock()

	b.obs.OnTransition(t)
}

// Generate registers the source, reads its metadata and extracts every
// resolved offset concurrently. It returns only after all extractions have
// settled. The source handle is released exactly once before returning,
// whatever the outcome. If any offset fails the whole batch fails with that
// error and thumbnails already stored by other offsets are released.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	opts := g.defaults.Merge(req.Options)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if req.Source == nil {
		return nil, errors.New("no source provided")
	}

	b := &batch{
		state:   StateIdle,
		started: time.Now(),
		obs:     Observers(g.observer, req.Observer),
	}

	b.to(StateLoadingMetadata, nil)

	src, err := g.store.Put(req.Source, req.ContentType)
	if err != nil {
		err = fmt.Errorf("register source: %w", err)
		b.to(StateFailed, err)
		return nil, err
	}
	defer g.store.Release(src.ID)

	meta, err := g.prober.Probe(ctx, src)
	if err == nil && (meta.Width <= 0 || meta.Height <= 0) {
		err = fmt.Errorf("source has no picture dimensions (%dx%d)", meta.Width, meta.Height)
	}
	if err != nil {
		err = &MetadataLoadError{Err: err}
		b.to(StateFailed, err)
		return nil, err
	}
	if meta.Duration < 0 {
		meta.Duration = 0
	}

	offsets := ResolveOffsets(req.Offsets, meta.Duration)
	dims := CalculateDimensions(meta.Width, meta.Height, opts.MaxWidth, opts.MaxHeight)

	b.mu.Lock()
	b.meta = meta
	b.offsets = offsets
	b.mu.Unlock()

	log.Debug("source %s: %dx%d %.2fs, %d offsets at %dx%d %s",
		src.ID, meta.Width, meta.Height, meta.Duration, len(offsets), dims.Width, dims.Height, opts.Format)

	b.to(StateExtracting, nil)

	thumbs, err := g.extractAll(ctx, b, src, offsets, dims, opts)
	if err != nil {
		b.to(StateFailed, err)
		return nil, err
	}

	b.to(StateDone, nil)
	return &Result{
		Source:     src,
		Metadata:   meta,
		Dimensions: dims,
		Offsets:    offsets,
		Options:    opts,
		Thumbnails: thumbs,
	}, nil
}

func (g *Generator) extractAll(ctx context.Context, b *batch, src resources.Resource, offsets []float64, dims Dimensions, opts Options) ([]Thumbnail, error) {
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)

	thumbs := make([]Thumbnail, len(offsets))
	for i, t := range offsets {
		grp.Go(func() error {
			return g.extractOne(gctx, b, src, i, t, dims, opts, &thumbs[i])
		})
	}

	if err := grp.Wait(); err != nil {
		released := g.Release(thumbs...)
		if released > 0 {
			log.Debug("batch failed, released %d completed thumbnails", released)
		}
		return nil, err
	}
	return thumbs, nil
}

func (g *Generator) extractOne(ctx context.Context, b *batch, src resources.Resource, i int, t float64, dims Dimensions, opts Options, out *Thumbnail) error {
	report := ExtractionReport{Index: i, Offset: t, Format: opts.Format}
	defer func() { b.obs.OnExtraction(report) }()

	if err := ctx.Err(); err != nil {
		report.Err = &FrameExtractionError{Offset: t, Phase: PhaseSeek, Err: err}
		return report.Err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	frame, err := g.extractor.Extract(ctx, src, t, dims, opts)
	report.Seek, report.Draw, report.Encode = frame.Seek, frame.Draw, frame.Encode
	if err != nil {
		report.Err = err
		return err
	}

	res, err := g.store.Put(bytes.NewReader(frame.Data), string(opts.Format))
	if err != nil {
		report.Err = &FrameExtractionError{Offset: t, Phase: PhaseStore, Err: err}
		return report.Err
	}

	report.Size = len(frame.Data)
	*out = Thumbnail{
		URL:        res.URL,
		ResourceID: res.ID,
		Data:       frame.Data,
		Width:      dims.Width,
		Height:     dims.Height,
		TimeOffset: t,
		Format:     opts.Format,
		Size:       len(frame.Data),
	}
	return nil
}

// Release drops the handles behind thumbs and returns how many were live.
// Entries without a handle are skipped.
func (g *Generator) Release(thumbs ...Thumbnail) int {
	n := 0
	for _, th := range thumbs {
		if th.ResourceID != "" && g.store.Release(th.ResourceID) {
			n++
		}
	}
	return n
}
