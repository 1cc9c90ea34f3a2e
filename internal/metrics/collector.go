package metrics

import (
	"runtime"
	"sync"
	"time"

	"media-thumbnailer/internal/filesystem"
	"media-thumbnailer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	JobsByState     map[string]int
	OpenConnections int
}

// Collector periodically collects and updates gauges that are derived from
// external state: the job table, database file sizes and Go memory.
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector. dbPath may be empty.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
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
	c.collectMemory()
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()
	for _, state := range []string{"loading-metadata", "extracting", "done", "failed"} {
		JobsStored.WithLabelValues(state).Set(float64(stats.JobsByState[state]))
	}
	DBConnectionsOpen.Set(float64(stats.OpenConnections))

	logging.Debug("Metrics collected: jobs=%v, connections=%d",
		stats.JobsByState, stats.OpenConnections)
}

func (c *Collector) collectMemory() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemAllocBytes.Set(float64(m.Alloc))
	GoMemSysBytes.Set(float64(m.Sys))
}

func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		size := 0.0
		if info, err := filesystem.StatWithRetry(c.dbPath+suffix, filesystem.DefaultRetryConfig(filesystem.VolumeDatabase)); err == nil {
			size = float64(info.Size())
		}
		DBSizeBytes.WithLabelValues(label).Set(size)
	}
}
