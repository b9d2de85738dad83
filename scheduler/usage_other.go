//go:build !linux

package scheduler

// threadUsage reports the CPU time consumed by the calling OS thread.
// Per-thread rusage is only wired up on Linux.
func threadUsage() (ThreadUsage, bool) {
	return ThreadUsage{}, false
}
