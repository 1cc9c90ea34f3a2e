package resources

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/logging"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long an unreleased handle survives.
const DefaultTTL = 24 * time.Hour

// URLPrefix is the path under which handles are served over HTTP.
const URLPrefix = "/api/resources/"

// ErrNotFound is returned for unknown, released or expired handles.
var ErrNotFound = errors.New("resource not found")

var log = logging.For("resources")

// Resource is a transient handle to bytes stored on local disk.
type Resource struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Path        string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Observer receives registry lifecycle events. The metrics package provides
// the Prometheus implementation.
type Observer interface {
	ObserveCreate(res Resource)
	ObserveRelease(res Resource, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveCreate(Resource)          {}
func (nopObserver) ObserveRelease(Resource, string) {}

// Registry hands out resource handles and deletes the backing file when a
// handle is released or expires. Every handle is released at most once.
type Registry struct {
	dir      string
	items    *cache.Cache
	observer Observer

	// mu makes lookup-then-delete in Release atomic.
	mu sync.Mutex

	// reasons records why a handle is being evicted; read by the eviction hook.
	reasons sync.Map

	hooksMu sync.RWMutex
	hooks   []func(Resource)
}

// NewRegistry stores resource files in dir. Handles not released within ttl are
// evicted by a janitor that runs every ttl/4 (at least once a minute). obs may
// be nil.
func NewRegistry(dir string, ttl time.Duration, obs Observer) (*Registry, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create resource dir: %w", err)
	}

	// No handle survives a restart, so anything left in dir is an orphan.
	if n, err := sweep(dir); err != nil {
		log.Warn("failed to clear stale resources in %s: %v", dir, err)
	} else if n > 0 {
		log.Info("removed %d stale resource files from %s", n, dir)
	}

	cleanup := ttl / 4
	if cleanup > time.Minute {
		cleanup = time.Minute
	}

	if obs == nil {
		obs = nopObserver{}
	}

	r := &Registry{
		dir:      dir,
		items:    cache.New(ttl, cleanup),
		observer: obs,
	}
	r.items.OnEvicted(r.evicted)

	log.Debug("registry ready at %s (ttl %v)", dir, ttl)
	return r, nil
}

// OnRelease registers fn to run after a handle is released or expires.
func (r *Registry) OnRelease(fn func(Resource)) {
	r.hooksMu.Lock()
	r.hooks = append(r.hooks, fn)
	r.hooksMu.Unlock()
}

// Put copies src to disk and returns a new handle. An empty contentType is
// sniffed from the stored bytes.
func (r *Registry) Put(src io.Reader, contentType string) (Resource, error) {
	id := uuid.NewString()
	path := filepath.Join(r.dir, id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Resource{}, fmt.Errorf("create resource file: %w", err)
	}

	size, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn("failed to remove partial resource %s: %v", path, rmErr)
		}
		return Resource{}, fmt.Errorf("write resource: %w", err)
	}

	if contentType == "" {
		if mt, err := mimetype.DetectFile(path); err == nil {
			contentType = mt.String()
		} else {
			contentType = "application/octet-stream"
		}
	}

	res := Resource{
		ID:          id,
		URL:         URLPrefix + id,
		Path:        path,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now(),
	}
	r.items.SetDefault(id, res)
	r.observer.ObserveCreate(res)

	log.Debug("put %s (%s, %d bytes)", id, contentType, size)
	return res, nil
}

// Get returns the live handle for id.
func (r *Registry) Get(id string) (Resource, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return Resource{}, false
	}
	return v.(Resource), true
}

// Open returns the handle and an open reader over its bytes.
func (r *Registry) Open(id string) (*os.File, Resource, error) {
	res, ok := r.Get(id)
	if !ok {
		return nil, Resource{}, ErrNotFound
	}
	f, err := filesystem.OpenWithRetry(res.Path, filesystem.DefaultRetryConfig(filesystem.VolumeResources))
	if err != nil {
		return nil, Resource{}, fmt.Errorf("open resource %s: %w", id, err)
	}
	return f, res, nil
}

// Release drops the handle and removes its file. It returns false when id was
// unknown or already released, so calling it twice is harmless.
func (r *Registry) Release(id string) bool {
	return r.drop(id, "release")
}

func (r *Registry) drop(id, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items.Get(id); !ok {
		return false
	}
	r.reasons.Store(id, reason)
	r.items.Delete(id)
	return true
}

// Len returns the number of live handles, including expired ones the janitor
// has not collected yet.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Close releases every outstanding handle, including expired ones the janitor
// has not collected yet.
func (r *Registry) Close() {
	r.items.DeleteExpired()
	for id := range r.items.Items() {
		r.drop(id, "shutdown")
	}
}

// evicted runs for explicit deletes and janitor expiry alike. It must not take r.mu.
func (r *Registry) evicted(id string, v interface{}) {
	res, ok := v.(Resource)
	if !ok {
		return
	}

	reason := "expired"
	if stored, ok := r.reasons.LoadAndDelete(id); ok {
		reason = stored.(string)
	}

	if err := os.Remove(res.Path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove %s: %v", res.Path, err)
	}
	r.observer.ObserveRelease(res, reason)
	log.Debug("released %s (%s)", id, reason)

	r.hooksMu.RLock()
	hooks := r.hooks
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(res)
	}
}

// sweep removes the regular files directly under dir and returns how many.
func sweep(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
