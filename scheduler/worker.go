package scheduler

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/lyra-lang/multicore/internal"
)

// idleSpins is how many empty probe rounds a worker makes before yielding
// the processor while other workers still hold unfinished subtasks.
const idleSpins = 64

// A worker owns one deque and one inbox. The inbox is only a wake-up and
// delivery path: Submit sends freshly partitioned subtasks through it, and
// the worker moves them into its private run list (pinned subtasks) or its
// deque (stealable subtasks). The steady-state loop never blocks on the
// inbox unless the whole pool is out of work.
type worker struct {
	id    int
	sched *Scheduler
	inbox chan *subtask
	deque *deque

	// local holds pinned subtasks; only the owner touches it.
	local []*subtask

	// closing is set once the inbox is closed.
	closing bool

	// rng is the linear congruential state behind steal victim probing.
	rng uint32

	busy     atomic.Int64 // nanoseconds spent in subtask functions
	executed atomic.Int64
	steals   atomic.Int64
	usage    atomic.Pointer[ThreadUsage]
}

func newWorker(s *Scheduler, id int) *worker {
	return &worker{
		id:    id,
		sched: s,
		inbox: make(chan *subtask, 64),
		deque: newDeque(32),
		rng:   uint32(id + 1),
	}
}

// run is the worker main loop. The goroutine is locked to an OS thread for
// the life of the worker, so the pool is a fixed set of threads and
// per-thread rusage is attributable to one worker.
func (w *worker) run() {
	defer w.sched.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		st, ok := w.next()
		if !ok {
			return
		}
		w.execute(st)
	}
}

// next returns the next subtask to execute, in preference order: the
// private run list, the bottom of the own deque, newly delivered subtasks,
// then a steal from another worker. When everything is empty it parks on
// the inbox if no subtasks are outstanding anywhere, and otherwise yields
// and retries, since pinned work cannot migrate and stealable work may
// appear on other deques at any time.
func (w *worker) next() (*subtask, bool) {
	spins := 0
	for {
		if n := len(w.local); n > 0 {
			st := w.local[n-1]
			w.local = w.local[:n-1]
			return st, true
		}
		if st := w.deque.pop(); st != nil {
			return st, true
		}
		if !w.closing && w.drain() {
			continue
		}
		if st := w.stealAny(); st != nil {
			return st, true
		}
		if w.sched.outstanding.Load() > 0 {
			spins++
			if spins > idleSpins {
				runtime.Gosched()
				spins = 0
			}
			continue
		}
		if w.closing {
			return nil, false
		}
		// Nothing anywhere; park until the next submission or shutdown.
		st, ok := <-w.inbox
		if !ok {
			w.closing = true
			continue
		}
		w.admit(st)
	}
}

// drain moves every currently delivered subtask out of the inbox. It
// reports whether anything arrived.
func (w *worker) drain() bool {
	delivered := false
	for {
		select {
		case st, ok := <-w.inbox:
			if !ok {
				w.closing = true
				return delivered
			}
			w.admit(st)
			delivered = true
		default:
			return delivered
		}
	}
}

func (w *worker) admit(st *subtask) {
	if st.chunk > 0 {
		w.deque.push(st)
	} else {
		w.local = append(w.local, st)
	}
}

// stealAny probes the other workers' deques in a random rotation and takes
// the first available subtask.
func (w *worker) stealAny() *subtask {
	workers := w.sched.workers
	n := len(workers)
	if n < 2 {
		return nil
	}
	offset := int(w.nextRand()) % n
	for k := 0; k < n; k++ {
		victim := workers[(offset+k)%n]
		if victim == w {
			continue
		}
		if st := victim.deque.steal(); st != nil {
			st.stolenFrom = victim.id
			w.steals.Add(1)
			return st
		}
	}
	return nil
}

// nextRand advances the worker's private pseudorandom state. The constants
// are the classic 214013/2531011 linear congruential generator; victim
// probing needs speed, not quality.
func (w *worker) nextRand() uint32 {
	w.rng = 214013*w.rng + 2531011
	return (w.rng >> 16) & 0x7fff
}

// execute runs one subtask. A stealable subtask longer than its chunk is
// split first: the worker keeps the front chunk and pushes the remainder
// back on its own deque for thieves. Completion is counted even when the
// task has already failed and the body is skipped, so the submitter always
// unblocks.
func (w *worker) execute(st *subtask) {
	t := st.task
	if !t.failed.Load() {
		if st.chunk > 0 && st.end-st.start > st.chunk {
			rest := &subtask{
				task:       t,
				start:      st.start + st.chunk,
				end:        st.end,
				id:         st.id,
				chunk:      st.chunk,
				stolenFrom: st.stolenFrom,
			}
			t.pending.Add(1)
			w.sched.outstanding.Add(1)
			w.deque.push(rest)
			st.end = st.start + st.chunk
		}
		began := time.Now()
		if err := w.call(st); err != nil {
			t.fail(err)
		}
		w.busy.Add(int64(time.Since(began)))
	}
	w.executed.Add(1)
	if w.sched.profile {
		w.recordUsage()
	}
	w.sched.outstanding.Add(-1)
	if t.pending.Add(-1) == 0 {
		close(t.done)
	}
}

// call invokes the subtask function, converting a panic into an error so a
// crashing body fails its task instead of tearing the pool down.
func (w *worker) call(st *subtask) (err error) {
	defer func() {
		if p := internal.WrapPanic(recover()); p != nil {
			err = fmt.Errorf("scheduler: panic in task %q: %v", st.task.name, p)
		}
	}()
	return st.task.fn(st.start, st.end, st.id, w.id)
}

func (w *worker) recordUsage() {
	if u, ok := threadUsage(); ok {
		w.usage.Store(&u)
	}
}
