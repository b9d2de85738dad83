//go:build linux

package scheduler

import (
	"time"

	"golang.org/x/sys/unix"
)

// threadUsage reports the CPU time consumed by the calling OS thread.
// Workers are locked to their threads, so the result is attributable to the
// calling worker.
func threadUsage() (ThreadUsage, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_THREAD, &ru); err != nil {
		return ThreadUsage{}, false
	}
	return ThreadUsage{
		User:   time.Duration(ru.Utime.Nano()),
		System: time.Duration(ru.Stime.Nano()),
	}, true
}
