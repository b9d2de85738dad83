package scheduler

import "sync/atomic"

// A deque is the Chase-Lev work-stealing deque a worker keeps its stealable
// subtasks in. The owning worker pushes and pops at the bottom; any other
// worker may steal at the top. top and bottom are independent atomic indices
// into a growable circular buffer: pushes publish the slot with a release
// store of bottom, pops and steals acquire the matching index before reading
// the slot, and steals claim an element by compare-and-swapping top. The
// buffer grows when full and is never shrunk, so a concurrent steal always
// reads from a buffer that still holds its element.
type deque struct {
	top    atomic.Int64
	bottom atomic.Int64
	ring   atomic.Pointer[ring]

	// dead is set at scheduler shutdown so pending steals fail cleanly
	// instead of touching a retired deque.
	dead atomic.Bool
}

type ring struct {
	size int64
	buf  []*subtask
}

func newRing(size int64) *ring {
	return &ring{size: size, buf: make([]*subtask, size)}
}

func (r *ring) get(i int64) *subtask     { return r.buf[i%r.size] }
func (r *ring) put(i int64, st *subtask) { r.buf[i%r.size] = st }

func (r *ring) grow(bottom, top int64) *ring {
	nr := newRing(r.size * 2)
	for i := top; i < bottom; i++ {
		nr.put(i, r.get(i))
	}
	return nr
}

func newDeque(size int64) *deque {
	d := new(deque)
	d.ring.Store(newRing(size))
	return d
}

// push appends a subtask at the bottom. Owner only.
func (d *deque) push(st *subtask) {
	b := d.bottom.Load()
	t := d.top.Load()
	r := d.ring.Load()
	if b-t >= r.size-1 {
		r = r.grow(b, t)
		d.ring.Store(r)
	}
	r.put(b, st)
	d.bottom.Store(b + 1)
}

// pop removes the most recently pushed subtask. Owner only. The last
// remaining element races with concurrent steals; the compare-and-swap on
// top decides the winner.
func (d *deque) pop() *subtask {
	b := d.bottom.Load() - 1
	r := d.ring.Load()
	d.bottom.Store(b)
	t := d.top.Load()
	if t > b {
		// empty; restore bottom
		d.bottom.Store(b + 1)
		return nil
	}
	st := r.get(b)
	if t == b {
		if !d.top.CompareAndSwap(t, t+1) {
			// a thief claimed the last element first
			st = nil
		}
		d.bottom.Store(b + 1)
	}
	return st
}

// steal removes the oldest subtask on behalf of another worker. Safe to call
// from any worker; concurrent thieves race on the compare-and-swap of top
// and all but one back off empty-handed.
func (d *deque) steal() *subtask {
	if d.dead.Load() {
		return nil
	}
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil
	}
	r := d.ring.Load()
	st := r.get(t)
	if !d.top.CompareAndSwap(t, t+1) {
		return nil
	}
	return st
}
