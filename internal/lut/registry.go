package lut

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"frame-viewer/internal/logging"
	"frame-viewer/internal/metrics"
)

// ErrNotLoaded is returned by Table for a path that was never loaded or has
// been dropped from the cache without being the active table.
var ErrNotLoaded = errors.New("lut not loaded")

// Registry caches parsed tables by path for the whole process. Tables are
// published only after a complete parse, so readers never observe a
// half-loaded LUT. The active table is pinned outside the cost-bounded cache
// so rendering never has to parse. It is safe for concurrent use.
type Registry struct {
	cache *ristretto.Cache[string, *Table]

	// mu serializes parses so one path is never parsed twice concurrently.
	mu   sync.Mutex
	load func(path string) (*Table, error)

	pinMu     sync.RWMutex
	activeKey string
	active    *Table
}

// NewRegistry creates a registry holding at most maxBytes of grid data.
func NewRegistry(maxBytes int64) (*Registry, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("lut registry budget must be positive, got %d", maxBytes)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Table]{
		NumCounters:        10_000,
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create lut cache: %w", err)
	}
	return &Registry{cache: cache, load: Load}, nil
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Load returns the table for path, parsing it on first use. Parse errors
// are returned to the caller and nothing is cached.
func (r *Registry) Load(path string) (*Table, error) {
	key := normalize(path)
	if t, ok := r.cache.Get(key); ok {
		metrics.LUTLoadsTotal.WithLabelValues("cached").Inc()
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache.Get(key); ok {
		metrics.LUTLoadsTotal.WithLabelValues("cached").Inc()
		return t, nil
	}

	t, err := r.load(path)
	if err != nil {
		return nil, err
	}

	if !r.cache.Set(key, t, t.SizeBytes()) {
		logging.Debug("LUT %s not retained by registry cache", path)
	}
	r.cache.Wait()

	logging.Info("Loaded %s LUT %s (size %d, title %q)", t.Kind, path, t.Size, t.Title)
	return t, nil
}

// Use loads path and pins it as the active table, replacing the previous
// one. On error the active table is left as it was.
func (r *Registry) Use(path string) (*Table, error) {
	t, err := r.Load(path)
	if err != nil {
		return nil, err
	}
	r.pinMu.Lock()
	r.activeKey, r.active = normalize(path), t
	r.pinMu.Unlock()
	return t, nil
}

// Table returns an already loaded table. It is the lookup used while
// rendering and never reads the file; paths that were not loaded, or were
// evicted and are not active, yield ErrNotLoaded.
func (r *Registry) Table(path string) (*Table, error) {
	key := normalize(path)
	r.pinMu.RLock()
	if key == r.activeKey && r.active != nil {
		t := r.active
		r.pinMu.RUnlock()
		return t, nil
	}
	r.pinMu.RUnlock()

	if t, ok := r.cache.Get(key); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLoaded, path)
}

// Forget drops the cached parse of path so the next Load rereads the file.
// A pinned active table stays in use until Use replaces it.
func (r *Registry) Forget(path string) {
	r.cache.Del(normalize(path))
	r.cache.Wait()
}

// Close releases the cache.
func (r *Registry) Close() {
	r.cache.Close()
}
