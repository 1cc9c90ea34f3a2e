package resources

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir(), ttl, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestPutAndOpen(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	res, err := r.Put(strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.ID == "" || res.URL != URLPrefix+res.ID {
		t.Errorf("unexpected handle %+v", res)
	}
	if res.Size != 5 {
		t.Errorf("Size = %d, want 5", res.Size)
	}

	f, got, err := r.Open(res.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if string(data) != "hello" {
		t.Errorf("read %q", data)
	}
	if got.ContentType != "text/plain" {
		t.Errorf("ContentType = %q", got.ContentType)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestPutSniffsContentType(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	res, err := r.Put(bytes.NewReader(png), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", res.ContentType)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	var released int32
	r.OnRelease(func(Resource) { atomic.AddInt32(&released, 1) })

	res, _ := r.Put(strings.NewReader("x"), "text/plain")

	if !r.Release(res.ID) {
		t.Fatal("first Release returned false")
	}
	if r.Release(res.ID) {
		t.Error("second Release returned true")
	}
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Errorf("backing file still present: %v", err)
	}
	if _, _, err := r.Open(res.ID); err != ErrNotFound {
		t.Errorf("Open after release error = %v, want ErrNotFound", err)
	}
	if n := atomic.LoadInt32(&released); n != 1 {
		t.Errorf("release hook ran %d times, want 1", n)
	}
}

func TestConcurrentReleaseRunsHookOnce(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	var released int32
	r.OnRelease(func(Resource) { atomic.AddInt32(&released, 1) })
	res, _ := r.Put(strings.NewReader("x"), "text/plain")

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Release(res.ID) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || released != 1 {
		t.Errorf("wins=%d released=%d, want 1 and 1", wins, released)
	}
}

func TestExpiry(t *testing.T) {
	r := newTestRegistry(t, 40*time.Millisecond)

	done := make(chan Resource, 1)
	r.OnRelease(func(res Resource) { done <- res })

	res, _ := r.Put(strings.NewReader("x"), "text/plain")

	select {
	case got := <-done:
		if got.ID != res.ID {
			t.Errorf("expired %s, want %s", got.ID, res.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not expire")
	}
	if _, ok := r.Get(res.ID); ok {
		t.Error("expired handle still returned by Get")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for i := 0; i < 3; i++ {
		res, _ := r.Put(strings.NewReader("x"), "text/plain")
		paths = append(paths, res.Path)
	}

	r.Close()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Close", r.Len())
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s not removed", p)
		}
	}
}

func TestCloseRemovesUncollectedExpiredHandles(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	var released []string
	r.OnRelease(func(res Resource) { released = append(released, res.ID) })

	res, _ := r.Put(strings.NewReader("x"), "text/plain")
	// Expire the entry without waiting for the janitor, which runs once a
	// minute for this ttl.
	r.items.Set(res.ID, res, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	r.Close()

	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Errorf("expired resource file %s left behind", res.Path)
	}
	if len(released) != 1 || released[0] != res.ID {
		t.Errorf("release hook saw %v, want [%s]", released, res.ID)
	}
}

func TestNewRegistryClearsOrphans(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "0b7c4f3e-crashed")
	if err := os.WriteFile(orphan, []byte("left over"), 0o600); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "keep")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(dir, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(r.Close)

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphan %s not removed", orphan)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Errorf("subdirectory removed: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
