package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the extraction
// worker count.
const EnvOverride = "EXTRACT_WORKERS"

// Count returns a worker count of multiplier x GOMAXPROCS, at least 1 and at
// most limit (0 means unbounded). GOMAXPROCS follows container CPU limits on
// Go 1.19+. A positive EXTRACT_WORKERS value replaces the computed count but
// is still capped by limit.
func Count(multiplier float64, limit int) int {
	n := 0
	if v, err := strconv.Atoi(os.Getenv(EnvOverride)); err == nil && v > 0 {
		n = v
	} else {
		n = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForCPU sizes pools for CPU-bound work such as image encoding.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForMixed sizes pools for work that waits on a child process and then
// encodes, which is what frame extraction does.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
