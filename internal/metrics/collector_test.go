package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestCollectorCollect(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	if err := os.WriteFile(dbPath, make([]byte, 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dbPath+"-wal", make([]byte, 1024), 0o600); err != nil {
		t.Fatal(err)
	}

	provider := &mockStatsProvider{stats: Stats{
		JobsByState:     map[string]int{"done": 7, "failed": 2},
		OpenConnections: 3,
	}}

	c := NewCollector(provider, dbPath, time.Minute)
	c.collect()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"jobs done", gaugeValue(t, JobsStored.WithLabelValues("done")), 7},
		{"jobs failed", gaugeValue(t, JobsStored.WithLabelValues("failed")), 2},
		{"jobs extracting", gaugeValue(t, JobsStored.WithLabelValues("extracting")), 0},
		{"connections", gaugeValue(t, DBConnectionsOpen), 3},
		{"db main", gaugeValue(t, DBSizeBytes.WithLabelValues("main")), 4096},
		{"db wal", gaugeValue(t, DBSizeBytes.WithLabelValues("wal")), 1024},
		{"db shm", gaugeValue(t, DBSizeBytes.WithLabelValues("shm")), 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if gaugeValue(t, GoMemAllocBytes) <= 0 {
		t.Error("GoMemAllocBytes not collected")
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, "", time.Minute)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(&mockStatsProvider{}, "", 10*time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop()
}
