/*
Package workers sizes goroutine pools from GOMAXPROCS rather than
runtime.NumCPU, so a pod limited to 2 CPUs on a 64-core node runs 2-3
extraction workers instead of 64 ffmpeg processes.

	limit := workers.ForMixed(8) // 1.5 per CPU, at most 8

Operators can pin the count with EXTRACT_WORKERS:

	env:
	- name: EXTRACT_WORKERS
	  value: "4"
*/
package workers
