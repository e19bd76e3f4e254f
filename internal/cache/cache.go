package cache

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/memory"
	"frame-viewer/internal/metrics"
)

type entry struct {
	img     *frame.RGB8
	size    int64
	touched time.Time
	seq     uint64
}

// Entry describes one cached frame.
type Entry struct {
	Key     frame.Key
	Bytes   int64
	Touched time.Time
}

// FrameCache maps frame keys to rendered images. It is safe for concurrent
// use.
type FrameCache struct {
	mu      sync.Mutex
	entries map[frame.Key]*entry
	used    int64
	seq     uint64
	// warned records keys already reported as oversized.
	warned map[frame.Key]struct{}

	listenersMu  sync.Mutex
	listeners    map[uint64]func()
	nextListener uint64
}

// New creates an empty cache.
func New() *FrameCache {
	return &FrameCache{
		entries:   make(map[frame.Key]*entry),
		warned:    make(map[frame.Key]struct{}),
		listeners: make(map[uint64]func()),
	}
}

// Get returns the image for key without changing its eviction order.
func (c *FrameCache) Get(key frame.Key) (*frame.RGB8, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		metrics.FrameCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.FrameCacheLookups.WithLabelValues("hit").Inc()
	return e.img, true
}

// Contains reports whether key is cached.
func (c *FrameCache) Contains(key frame.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Put stores img under key, replacing any previous entry.
func (c *FrameCache) Put(key frame.Key, img *frame.RGB8) {
	c.PutIf(key, img, nil)
}

// PutIf stores img under key only if commit returns true. commit runs with
// the cache locked and must not call back into the cache. A nil commit always
// stores.
func (c *FrameCache) PutIf(key frame.Key, img *frame.RGB8, commit func() bool) bool {
	if img == nil {
		return false
	}

	c.mu.Lock()
	if commit != nil && !commit() {
		c.mu.Unlock()
		return false
	}
	if old, ok := c.entries[key]; ok {
		c.used -= old.size
	}
	c.seq++
	e := &entry{img: img, size: img.SizeBytes(), touched: time.Now(), seq: c.seq}
	c.entries[key] = e
	c.used += e.size
	c.updateGaugesLocked()
	c.mu.Unlock()

	logging.Debug("Cached %s (%s)", key, memory.FormatBytes(e.size))
	c.notify()
	return true
}

// UsedBytes is the total size of all cached images.
func (c *FrameCache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len is the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// EvictUntilUnderBudget removes the least recently produced entries until the
// used bytes fit in budget, and returns how many were removed. A single
// remaining entry larger than budget is kept.
func (c *FrameCache) EvictUntilUnderBudget(budget int64) int {
	removed := 0
	for {
		c.mu.Lock()
		if c.used <= budget || len(c.entries) == 0 {
			c.mu.Unlock()
			return removed
		}
		if len(c.entries) == 1 {
			c.reportOverageLocked(budget)
			c.mu.Unlock()
			return removed
		}

		var victim frame.Key
		var oldest *entry
		for k, e := range c.entries {
			if oldest == nil || older(e, oldest) {
				victim, oldest = k, e
			}
		}
		delete(c.entries, victim)
		delete(c.warned, victim)
		c.used -= oldest.size
		c.updateGaugesLocked()
		c.mu.Unlock()

		metrics.FrameCacheEvictions.Inc()
		logging.Debug("Evicted %s (%s)", victim, memory.FormatBytes(oldest.size))
		removed++
		c.notify()
	}
}

func older(a, b *entry) bool {
	if !a.touched.Equal(b.touched) {
		return a.touched.Before(b.touched)
	}
	return a.seq < b.seq
}

func (c *FrameCache) reportOverageLocked(budget int64) {
	for k, e := range c.entries {
		if _, ok := c.warned[k]; ok {
			return
		}
		c.warned[k] = struct{}{}
		metrics.FrameCacheOverages.Inc()
		logging.Warn("Frame %s (%s) exceeds the cache budget of %s on its own; keeping it",
			k, memory.FormatBytes(e.size), memory.FormatBytes(budget))
	}
}

// Clear removes every entry.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	c.entries = make(map[frame.Key]*entry)
	c.warned = make(map[frame.Key]struct{})
	c.used = 0
	c.updateGaugesLocked()
	c.mu.Unlock()

	logging.Debug("Cleared %d cached frames", n)
	c.notify()
}

// Snapshot returns the cached entries ordered by source, index, tier and LUT.
func (c *FrameCache) Snapshot() []Entry {
	c.mu.Lock()
	out := make([]Entry, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, Entry{Key: k, Bytes: e.size, Touched: e.touched})
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b Entry) int {
		return compareKeys(a.Key, b.Key)
	})
	return out
}

// Keys returns the cached keys in Snapshot order.
func (c *FrameCache) Keys() []frame.Key {
	snap := c.Snapshot()
	keys := make([]frame.Key, len(snap))
	for i, e := range snap {
		keys[i] = e.Key
	}
	return keys
}

func compareKeys(a, b frame.Key) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Index, b.Index),
		cmp.Compare(a.Tier, b.Tier),
		cmp.Compare(a.LUT, b.LUT),
		cmp.Compare(a.String(), b.String()),
	)
}

// OnChange registers fn to run after every change. The returned func
// unregisters it.
func (c *FrameCache) OnChange(fn func()) (cancel func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *FrameCache) notify() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *FrameCache) updateGaugesLocked() {
	metrics.FrameCacheBytes.Set(float64(c.used))
	metrics.FrameCacheEntries.Set(float64(len(c.entries)))
}
