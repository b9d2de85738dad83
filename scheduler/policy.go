package scheduler

import "fmt"

// A Policy determines how a task's iteration space is distributed over the
// worker pool.
type Policy int8

const (
	// Dynamic pre-chunks every subtask so that idle workers can steal
	// unstarted chunks from busy workers. It corrects for data-dependent
	// per-iteration cost variance at the price of stealing overhead.
	Dynamic Policy = iota

	// Static gives every worker one fixed contiguous slice of the iteration
	// space, with a maximum skew of one iteration between any two slices.
	// Slices are pinned to their workers and never stolen.
	Static
)

func (p Policy) String() string {
	switch p {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	}
	return fmt.Sprintf("Policy(%d)", int8(p))
}

// A Kind classifies the body of a parallel region for policy selection.
type Kind int8

const (
	// KindMap is a general per-element map or filter body.
	KindMap Kind = iota
	// KindCommutativeReduce is a reduction whose operator commutes.
	KindCommutativeReduce
	// KindNoncommutativeReduce is a reduction whose operator does not
	// commute, so per-worker iteration order must be preserved.
	KindNoncommutativeReduce
	// KindScan is an inclusive prefix scan.
	KindScan
	// KindHistogram is a bucketed associative accumulation.
	KindHistogram
)

// Classify picks the scheduling policy for a parallel region. Scans and
// histograms have uniform, predictable per-element cost and always schedule
// statically; non-commutative reductions schedule statically because dynamic
// re-splitting would reorder the fold; maps and commutative reductions
// schedule dynamically exactly when static analysis found an unbounded loop
// in the body (a loop without a statically fixed, body-invariant bound).
func Classify(kind Kind, unboundedLoops bool) Policy {
	switch kind {
	case KindScan, KindHistogram, KindNoncommutativeReduce:
		return Static
	case KindMap, KindCommutativeReduce:
		if unboundedLoops {
			return Dynamic
		}
		return Static
	}
	panic(fmt.Sprintf("scheduler: invalid task kind: %v", int8(kind)))
}

// DefaultGranularity is the fraction of a subtask's iteration share that a
// dynamically scheduled worker executes per grab; the remainder goes back on
// its deque for thieves. Larger values amortize stealing overhead, smaller
// values improve load balance. The default was determined empirically.
const DefaultGranularity = 0.35

// An Info describes how a task's iteration space is divided into subtasks.
type Info struct {
	// IterPerSubtask is the base number of iterations per subtask.
	IterPerSubtask int
	// Remainder is the number of leading subtasks that receive one extra
	// iteration.
	Remainder int
	// NSubtasks is the number of subtasks the task is divided into.
	NSubtasks int
	// Sched is the scheduling policy the division was computed for.
	Sched Policy
}

// Partition divides iterations evenly over at most workers subtasks. The
// first Remainder subtasks receive one extra iteration, so no two subtasks
// differ by more than one iteration. Partition is a pure function: callers
// that need to know the exact subtask boundaries of a submitted task, such
// as the scan phases, can recompute them.
//
// Partition panics if iterations is negative or workers is not positive.
func Partition(iterations, workers int, sched Policy) Info {
	if iterations < 0 {
		panic(fmt.Sprintf("scheduler: invalid iteration count: %v", iterations))
	}
	if workers < 1 {
		panic(fmt.Sprintf("scheduler: invalid worker count: %v", workers))
	}
	n := workers
	if iterations < n {
		n = iterations
	}
	info := Info{NSubtasks: n, Sched: sched}
	if n == 0 {
		return info
	}
	info.IterPerSubtask = iterations / n
	info.Remainder = iterations % n
	return info
}

// Range returns the half-open iteration range [start, end) of subtask k.
func (in Info) Range(k int) (start, end int) {
	if k < 0 || k >= in.NSubtasks {
		panic(fmt.Sprintf("scheduler: invalid subtask index: %v", k))
	}
	start = k * in.IterPerSubtask
	if k < in.Remainder {
		start += k
	} else {
		start += in.Remainder
	}
	end = start + in.IterPerSubtask
	if k < in.Remainder {
		end++
	}
	return
}

// chunk returns the number of iterations a dynamically scheduled worker
// executes per grab.
func (in Info) chunk(granularity float64) int {
	c := int(float64(in.IterPerSubtask) * granularity)
	if c < 1 {
		c = 1
	}
	return c
}
