/*
Package histo provides the concurrent bucketed accumulation protocols of
the runtime: several workers fold values into the same logical bucket with
an associative operator, in an unconstrained interleaving, without losing
updates.

The update protocol is a static, one-time choice per operator, made by
Select from the operator's declared shape, in strict preference order:

TierAtomic updates each bucket with a single native atomic
read-modify-write. It applies when the operator is a scalar integer
operation Go's atomics implement directly (add, and, or over 32- or 64-bit
words).

TierCAS reads the bucket, applies the combining function, and retries a
compare-and-exchange of the bucket's bit pattern until it wins. It applies
to any other single-word scalar operator; floating-point buckets are
reinterpreted bit for bit as same-width unsigned integers for the exchange
only, while the arithmetic runs in the floating representation.

TierLock serializes updates through a bounded table of spin-lock cells. It
applies to everything else, in particular multi-component operators whose
components must be combined jointly, and to sub-word bucket types, which Go
has no atomics for. An update holds exactly one cell, so no two cells are
ever held at once and lock ordering cannot deadlock.
*/
package histo

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/lyra-lang/multicore"
	"github.com/lyra-lang/multicore/scheduler"
)

// A Tier identifies the bucket-update protocol chosen for an operator.
type Tier uint8

const (
	// TierAtomic uses one native atomic read-modify-write per update.
	TierAtomic Tier = iota
	// TierCAS retries a compare-and-exchange of the bucket's bit pattern.
	TierCAS
	// TierLock serializes updates through a spin-lock cell.
	TierLock
)

func (t Tier) String() string {
	switch t {
	case TierAtomic:
		return "atomic"
	case TierCAS:
		return "cas"
	case TierLock:
		return "lock"
	}
	return "unknown"
}

// casSpins is how many failed compare-exchange attempts an update makes
// before yielding the processor. Retry loops are formally unbounded; the
// yield keeps a losing worker from starving its winner of a core.
const casSpins = 128

// A Strategy applies one operator's updates to shared buckets with the
// protocol chosen by Select. A Strategy is immutable and safe for
// concurrent use by any number of workers.
type Strategy[T any] struct {
	tier   Tier
	update func(p unsafe.Pointer, x T)
	op     multicore.Operator[T]
	locks  *LockTable
}

// Tier returns the protocol the strategy was selected with.
func (s *Strategy[T]) Tier() Tier { return s.tier }

// Update folds x into buckets[i]. Updates to the same bucket from any
// number of workers are never lost; their interleaving is unspecified.
func (s *Strategy[T]) Update(buckets []T, i int, x T) {
	if s.tier == TierLock {
		cell := s.locks.acquire(uint(i))
		buckets[i] = s.op.Combine(buckets[i], x)
		s.locks.release(cell)
		return
	}
	s.update(unsafe.Pointer(&buckets[i]), x)
}

// Select chooses the cheapest applicable update protocol for op. The
// decision is made once, from the operator's declared scalar shape and the
// size of T, never per update. Operators without a scalar decomposition
// always get the locking tier. A *WidthError is returned when the operator
// claims a scalar decomposition over a width that has neither a native
// atomic nor a supported compare-exchange; this is a compilation error for
// the front-end, detected before any update runs.
func Select[T any](op multicore.Operator[T]) (*Strategy[T], error) {
	if op.Scalar == multicore.OpNone {
		return Locked(op, 0), nil
	}
	var zero T
	width := unsafe.Sizeof(zero)
	if width != 4 && width != 8 {
		return nil, &WidthError{Op: op.Scalar, Width: width}
	}
	if update := nativeUpdate[T](op.Scalar); update != nil {
		return &Strategy[T]{tier: TierAtomic, update: update}, nil
	}
	return &Strategy[T]{tier: TierCAS, update: casUpdate(op, width)}, nil
}

// Locked builds a locking-tier strategy for op with a lock table of the
// given cell count (0 selects the default size). It is exported for
// front-ends that know an operator needs the locking tier and want to bound
// the table size explicitly; Select reaches the same protocol for any
// operator without a scalar decomposition.
func Locked[T any](op multicore.Operator[T], cells int) *Strategy[T] {
	return &Strategy[T]{tier: TierLock, op: op, locks: NewLockTable(cells)}
}

// nativeUpdate returns the native atomic update for op over T, or nil when
// Go's atomics have none. Signed and unsigned words share the unsigned
// entry points: add is two's-complement and the bitwise operations are
// representation-level either way.
func nativeUpdate[T any](op multicore.ScalarOp) func(p unsafe.Pointer, x T) {
	var zero T
	switch any(zero).(type) {
	case int32, uint32:
		switch op {
		case multicore.OpAdd:
			return func(p unsafe.Pointer, x T) {
				atomic.AddUint32((*uint32)(p), *(*uint32)(unsafe.Pointer(&x)))
			}
		case multicore.OpAnd:
			return func(p unsafe.Pointer, x T) {
				atomic.AndUint32((*uint32)(p), *(*uint32)(unsafe.Pointer(&x)))
			}
		case multicore.OpOr:
			return func(p unsafe.Pointer, x T) {
				atomic.OrUint32((*uint32)(p), *(*uint32)(unsafe.Pointer(&x)))
			}
		}
	case int64, uint64:
		switch op {
		case multicore.OpAdd:
			return func(p unsafe.Pointer, x T) {
				atomic.AddUint64((*uint64)(p), *(*uint64)(unsafe.Pointer(&x)))
			}
		case multicore.OpAnd:
			return func(p unsafe.Pointer, x T) {
				atomic.AndUint64((*uint64)(p), *(*uint64)(unsafe.Pointer(&x)))
			}
		case multicore.OpOr:
			return func(p unsafe.Pointer, x T) {
				atomic.OrUint64((*uint64)(p), *(*uint64)(unsafe.Pointer(&x)))
			}
		}
	}
	return nil
}

// casUpdate builds the compare-and-exchange retry loop for op over a 4- or
// 8-byte T. The bucket's bit pattern is reinterpreted as a same-width
// unsigned integer for the exchange; the combine itself runs on T values.
// Every attempted update either wins the exchange or retries against a
// newer bucket value, so no update is silently lost.
func casUpdate[T any](op multicore.Operator[T], width uintptr) func(p unsafe.Pointer, x T) {
	if width == 4 {
		return func(p unsafe.Pointer, x T) {
			addr := (*uint32)(p)
			for spins := 0; ; spins++ {
				oldBits := atomic.LoadUint32(addr)
				old := *(*T)(unsafe.Pointer(&oldBits))
				candidate := op.Combine(old, x)
				if atomic.CompareAndSwapUint32(addr, oldBits, *(*uint32)(unsafe.Pointer(&candidate))) {
					return
				}
				if spins > casSpins {
					runtime.Gosched()
					spins = 0
				}
			}
		}
	}
	return func(p unsafe.Pointer, x T) {
		addr := (*uint64)(p)
		for spins := 0; ; spins++ {
			oldBits := atomic.LoadUint64(addr)
			old := *(*T)(unsafe.Pointer(&oldBits))
			candidate := op.Combine(old, x)
			if atomic.CompareAndSwapUint64(addr, oldBits, *(*uint64)(unsafe.Pointer(&candidate))) {
				return
			}
			if spins > casSpins {
				runtime.Gosched()
				spins = 0
			}
		}
	}
}

// Accumulate folds body's values into shared buckets across s's worker
// pool, blocking until every iteration has been applied. body yields the
// logical bucket index and the value for one flat iteration index, and
// strategy applies the update. Bucketed accumulations have uniform
// per-element cost, so the task is scheduled statically.
func Accumulate[T any](s *scheduler.Scheduler, strategy *Strategy[T], buckets []T, iterations int, body func(i int) (bucket int, x T)) error {
	return s.Submit(scheduler.Task{
		Name:       "histogram",
		Iterations: iterations,
		Sched:      scheduler.Classify(scheduler.KindHistogram, false),
		Fn: func(start, end, _, _ int) error {
			for i := start; i < end; i++ {
				bucket, x := body(i)
				strategy.Update(buckets, bucket, x)
			}
			return nil
		},
	})
}
