/*
Package scheduler provides the worker pool that executes the parallel
regions emitted by the compiler. A Scheduler owns a fixed set of workers,
one per logical core, each locked to its own OS thread and created once at
construction; tasks are submitted against the pool and never spawn threads
of their own.

A task is a function over a flat iteration space together with a scheduling
policy. Submit divides the iteration space into per-worker subtasks
according to the policy, distributes them, and blocks until every subtask
has completed, so a sequence of Submit calls forms a sequence of barriers.
Statically scheduled subtasks are pinned to their workers; dynamically
scheduled subtasks are chunked and stealable, and idle workers take
unstarted chunks from busy workers' deques rather than waiting.

Failures are fatal for the whole task: the first subtask error (or recovered
panic) trips the task's error flag, the remaining subtasks of that task are
skipped as workers observe the flag, and Submit reports a single aggregated
*FatalError. Subtasks are never retried.
*/
package scheduler

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// NumThreadsEnv is the environment variable that overrides the default
// worker pool size.
const NumThreadsEnv = "LYRA_NUM_THREADS"

// A SubtaskFunc executes one contiguous slice [start, end) of a task's
// iteration space. subtask identifies the slice within the task's partition
// and worker is the executing worker; a non-nil error marks the whole task
// as failed.
type SubtaskFunc func(start, end, subtask, worker int) error

// A Task is a function over a flat iteration space, to be executed across
// the worker pool under the given scheduling policy.
type Task struct {
	// Name identifies the task in errors and diagnostics.
	Name string
	// Iterations is the size of the iteration space [0, Iterations).
	Iterations int
	// Sched selects static or dynamic scheduling; see Classify.
	Sched Policy
	// Fn is the subtask function.
	Fn SubtaskFunc
}

// task is the shared execution state behind one submitted Task.
type task struct {
	name string
	fn   SubtaskFunc

	// pending counts unfinished subtasks; the worker that decrements it to
	// zero closes done.
	pending atomic.Int64
	done    chan struct{}

	// failed is observed by every worker before it starts a subtask.
	failed  atomic.Bool
	errOnce sync.Once
	err     error
}

// fail records the first failure and trips the task's error flag.
func (t *task) fail(err error) {
	t.errOnce.Do(func() {
		t.err = err
		t.failed.Store(true)
	})
}

// A subtask is one worker's slice of a task's iteration space. A subtask
// with chunk == 0 is pinned to the worker it was assigned to; a subtask
// with chunk > 0 is stealable, and executes at most chunk iterations per
// grab, pushing the remainder back for thieves.
type subtask struct {
	task       *task
	start, end int
	id         int
	chunk      int
	stolenFrom int
}

// A Scheduler executes tasks across a fixed pool of workers.
type Scheduler struct {
	workers     []*worker
	granularity float64
	profile     bool

	mu     sync.RWMutex // serializes Submit distribution against Close
	closed bool
	wg     sync.WaitGroup

	tasks       atomic.Int64
	outstanding atomic.Int64 // unfinished subtasks across all live tasks
}

// Options configures a Scheduler. The zero value selects all defaults.
type Options struct {
	// Workers is the pool size. If it is not positive, the LYRA_NUM_THREADS
	// environment variable is consulted, and failing that the pool gets one
	// worker per logical core (GOMAXPROCS).
	Workers int

	// Granularity tunes how finely dynamically scheduled ranges are chunked
	// before becoming stealable, as a fraction of the per-subtask iteration
	// share. If it is not positive, DefaultGranularity is used.
	Granularity float64

	// Profile enables per-thread CPU usage collection, reported through
	// Stats. Workers are locked to OS threads either way; profiling only
	// adds the rusage reads.
	Profile bool
}

// New creates a scheduler and starts its worker pool. The pool persists
// until Close.
func New(opts Options) *Scheduler {
	n := opts.Workers
	if n <= 0 {
		if v := os.Getenv(NumThreadsEnv); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}
	}
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	granularity := opts.Granularity
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	s := &Scheduler{granularity: granularity, profile: opts.Profile}
	s.workers = make([]*worker, n)
	for i := range s.workers {
		s.workers[i] = newWorker(s, i)
	}
	s.wg.Add(n)
	for _, w := range s.workers {
		go w.run()
	}
	return s
}

// NumWorkers returns the size of the worker pool.
func (s *Scheduler) NumWorkers() int {
	return len(s.workers)
}

// TasksSubmitted returns the number of tasks submitted so far.
func (s *Scheduler) TasksSubmitted() int64 {
	return s.tasks.Load()
}

// Submit executes t across the worker pool and blocks until every subtask
// has completed. A zero-length iteration space completes immediately. If any
// subtask returns an error or panics, the remaining subtasks of t are
// skipped and Submit returns a *FatalError aggregating the first failure;
// the task's partial output is unspecified in that case.
//
// Submit must not be called from within a SubtaskFunc: a worker that blocks
// on a nested submission cannot execute its own share of the nested task.
//
// Submit panics if t.Fn is nil or t.Iterations is negative.
func (s *Scheduler) Submit(t Task) error {
	if t.Fn == nil {
		panic("scheduler: task without a function")
	}
	if t.Iterations < 0 {
		panic(fmt.Sprintf("scheduler: invalid iteration count: %v", t.Iterations))
	}
	if t.Iterations == 0 {
		return nil
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	info := Partition(t.Iterations, len(s.workers), t.Sched)
	rt := &task{name: t.Name, fn: t.Fn, done: make(chan struct{})}
	rt.pending.Store(int64(info.NSubtasks))
	s.tasks.Add(1)
	s.outstanding.Add(int64(info.NSubtasks))
	for k := 0; k < info.NSubtasks; k++ {
		start, end := info.Range(k)
		st := &subtask{task: rt, start: start, end: end, id: k, stolenFrom: -1}
		if info.Sched == Dynamic {
			st.chunk = info.chunk(s.granularity)
		}
		s.workers[k].inbox <- st
	}
	s.mu.RUnlock()

	<-rt.done
	if rt.failed.Load() {
		return &FatalError{Task: rt.name, Err: rt.err}
	}
	return nil
}

// Close shuts the worker pool down and waits for the workers to exit. Any
// already submitted tasks run to completion first. Submit after Close
// returns ErrClosed. Close is idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, w := range s.workers {
		w.deque.dead.Store(true)
		close(w.inbox)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// WorkerStats is a snapshot of one worker's execution counters.
type WorkerStats struct {
	// Worker is the worker id.
	Worker int
	// Busy is the cumulative time spent inside subtask functions.
	Busy time.Duration
	// Subtasks is the number of subtasks (or chunks) the worker executed.
	Subtasks int64
	// Steals is the number of subtasks the worker stole from other workers.
	Steals int64
	// Usage is the worker thread's CPU usage, if profiling is enabled and
	// the platform supports per-thread rusage; nil otherwise. The pointed-to
	// value is read-only.
	Usage *ThreadUsage
}

// ThreadUsage is the CPU time consumed by one worker's OS thread.
type ThreadUsage struct {
	User   time.Duration
	System time.Duration
}

// Stats returns a snapshot of every worker's execution counters.
func (s *Scheduler) Stats() []WorkerStats {
	stats := make([]WorkerStats, len(s.workers))
	for i, w := range s.workers {
		stats[i] = WorkerStats{
			Worker:   w.id,
			Busy:     time.Duration(w.busy.Load()),
			Subtasks: w.executed.Load(),
			Steals:   w.steals.Load(),
			Usage:    w.usage.Load(),
		}
	}
	return stats
}
