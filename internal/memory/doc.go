// Package memory sizes the Go heap limit from the container limit and applies
// backpressure to new thumbnail batches when the heap nears that limit.
//
// Each batch holds decoded frames and encoded thumbnails in memory while
// ffmpeg processes run beside it, so admission is decided per batch rather
// than per frame.
//
// # Configuration
//
//   - GOMEMLIMIT: used as is when set
//   - MEMORY_LIMIT: container limit in bytes, typically from the Kubernetes
//     Downward API
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap (default 0.85)
//
// # Backpressure
//
// A Monitor samples the heap on an interval. Above the critical watermark it
// stops admitting batches and triggers a GC; admission resumes once usage
// falls below the high watermark. With no limit configured every batch is
// admitted.
//
//	res := memory.ConfigureFromEnv()
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//
//	if !mon.Admit() {
//	    // reply 503
//	}
package memory
