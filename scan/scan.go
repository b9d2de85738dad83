/*
Package scan provides the parallel inclusive scan protocols of the runtime.

For a flat iteration domain the scan runs in three barrier-separated phases:
every worker first computes a locally correct partial scan of its contiguous
slice, then a single sequential pass corrects the boundary value of each
slice with the running cross-worker prefix, and finally every worker folds
its corrected carry-in into the interior of its slice. No second
barrier-synchronized pass over the data beyond those phases is needed, and
the output of any partition equals a strictly sequential scan of the same
input.

For a segmented domain (two or more dimensions, scan restricted to the
innermost one) the segments are independent, so each worker simply scans
whole segments sequentially in a single pass with no cross-worker carries.
*/
package scan

import (
	"fmt"

	"github.com/lyra-lang/multicore"
	"github.com/lyra-lang/multicore/scheduler"
)

// Scan computes the inclusive scan of body over dom, writing the result to
// out. It selects the segmented single-pass protocol when dom has two or
// more dimensions and the three-phase flat protocol otherwise.
//
// Scan panics if len(out) differs from dom.Size().
func Scan[T any](s *scheduler.Scheduler, dom multicore.Domain, op multicore.Operator[T], body multicore.Body[T], out []T) error {
	if size := dom.Size(); size != len(out) {
		panic(fmt.Sprintf("scan: domain size %v does not match output length %v", size, len(out)))
	}
	if dom.Segmented() {
		return segmented(s, dom, op, body, out)
	}
	return Inclusive(s, op, body, out)
}

// Inclusive computes the inclusive scan of body over the flat domain
// [0, len(out)), writing the result to out: out[k] is op.Combine folded
// left to right over body(0) through body(k). The three phases run as
// separate task submissions, so each phase observes the completed output of
// the previous one. A zero-length output produces no writes; a single
// subtask skips the correction phases entirely.
func Inclusive[T any](s *scheduler.Scheduler, op multicore.Operator[T], body multicore.Body[T], out []T) error {
	n := len(out)
	if n == 0 {
		return nil
	}
	info := scheduler.Partition(n, s.NumWorkers(), scheduler.Classify(scheduler.KindScan, false))

	// Phase 1: locally correct, globally incomplete partial scans. Map side
	// outputs are written by the body here and are final.
	err := s.Submit(scheduler.Task{
		Name:       "scan-local",
		Iterations: n,
		Sched:      info.Sched,
		Fn: func(start, end, _, _ int) error {
			acc := op.Neutral
			for i := start; i < end; i++ {
				acc = op.Combine(acc, body(i))
				out[i] = acc
			}
			return nil
		},
	})
	if err != nil || info.NSubtasks == 1 {
		return err
	}

	// Phase 2: a single sequential walk folds the running cross-worker
	// prefix into the last index of every subtask but the final one. Each
	// corrected boundary is the next subtask's carry-in.
	carry := op.Neutral
	for k := 0; k < info.NSubtasks-1; k++ {
		_, end := info.Range(k)
		carry = op.Combine(carry, out[end-1])
		out[end-1] = carry
	}

	// Phase 3: every subtask folds its carry-in into its interior. The
	// first slice is already globally correct, and each corrected boundary
	// must not be combined again; only the final subtask still owes its
	// last index.
	return s.Submit(scheduler.Task{
		Name:       "scan-carry",
		Iterations: n,
		Sched:      info.Sched,
		Fn: func(start, end, _, _ int) error {
			if start == 0 {
				return nil
			}
			carry := out[start-1]
			last := end - 1
			for i := start; i < last; i++ {
				out[i] = op.Combine(carry, out[i])
			}
			if end == n {
				out[last] = op.Combine(carry, out[last])
			}
			return nil
		},
	})
}

// segmented runs one sequential inclusive scan per segment, with segments
// distributed across the pool as a single statically scheduled task. Each
// segment gets a fresh accumulator; there is no cross-segment state and no
// correction phases.
func segmented[T any](s *scheduler.Scheduler, dom multicore.Domain, op multicore.Operator[T], body multicore.Body[T], out []T) error {
	inner := dom.Inner()
	return s.Submit(scheduler.Task{
		Name:       "scan-segments",
		Iterations: dom.Segments(),
		Sched:      scheduler.Classify(scheduler.KindScan, false),
		Fn: func(first, beyond, _, _ int) error {
			for seg := first; seg < beyond; seg++ {
				base := seg * inner
				acc := op.Neutral
				for j := 0; j < inner; j++ {
					acc = op.Combine(acc, body(base+j))
					out[base+j] = acc
				}
			}
			return nil
		},
	})
}
