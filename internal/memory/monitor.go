package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/metrics"
)

// Config holds watermark settings.
type Config struct {
	// LimitBytes overrides GOMEMLIMIT. Zero reads GOMEMLIMIT.
	LimitBytes int64

	// HighWaterMark is the usage ratio below which admission resumes.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which admission stops.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns 0.7 / 0.85 watermarks checked every 5s.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and decides batch admission.
type Monitor struct {
	config   Config
	limit    int64
	readHeap func() uint64

	mu       sync.RWMutex
	current  uint64
	paused   bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor. Without a limit it admits everything.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Warn("Memory monitor: no memory limit configured, backpressure disabled")
	} else {
		logging.Info("Memory monitor limit: %s", FormatBytes(limit))
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		readHeap: heapAlloc,
		stopChan: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling. It does nothing without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readHeap()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), refusing new batches", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), accepting batches", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
	}
}

// Admit reports whether a new batch may start. Refusals are counted.
func (m *Monitor) Admit() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	paused := m.paused
	m.mu.RUnlock()

	if paused {
		metrics.MemoryRejectsTotal.Inc()
	}
	return !paused
}

// Admitting reports whether Admit would currently succeed, without counting
// a rejection.
func (m *Monitor) Admitting() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.paused
}

// Usage returns heap usage as a ratio of the limit, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
