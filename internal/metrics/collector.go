package metrics

import (
	"time"

	"mediascand/internal/logging"
)

// StatsProvider exposes a snapshot of control-loop state for periodic
// gauge collection. The control loop itself only mutates these values
// on its own goroutine; GetStats must be safe to call concurrently.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds a point-in-time snapshot of the daemon's working set.
type Stats struct {
	ActiveWatches  int
	WatchSlabSize  int
	DirCacheSize   int
	PendingEntries int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
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

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
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

	WatcherActiveWatches.Set(float64(stats.ActiveWatches))
	WatcherSlabSize.Set(float64(stats.WatchSlabSize))
	DirCacheEntries.Set(float64(stats.DirCacheSize))
	SchedulerPendingEntries.Set(float64(stats.PendingEntries))

	logging.Debug("Metrics collected: watches=%d slab=%d dircache=%d pending=%d",
		stats.ActiveWatches, stats.WatchSlabSize, stats.DirCacheSize, stats.PendingEntries)
}
