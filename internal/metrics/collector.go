package metrics

import (
	"sync"
	"time"

	"frame-viewer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics of a viewer session
type Stats struct {
	CacheBytes   int64
	CacheBudget  int64
	CacheEntries int
	Frame        int
	WorkerBusy   bool
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	FrameCacheBytes.Set(float64(stats.CacheBytes))
	FrameCacheBudgetBytes.Set(float64(stats.CacheBudget))
	FrameCacheEntries.Set(float64(stats.CacheEntries))
	PlaybackFrame.Set(float64(stats.Frame))
	if stats.WorkerBusy {
		WorkerBusy.Set(1)
	} else {
		WorkerBusy.Set(0)
	}

	logging.Debug("Metrics collected: cache=%d/%d bytes, entries=%d, frame=%d",
		stats.CacheBytes, stats.CacheBudget, stats.CacheEntries, stats.Frame)
}
