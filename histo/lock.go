package histo

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// DefaultLockCells is the lock table size used when the caller does not
// bound it explicitly.
const DefaultLockCells = 1024

// lockSpins is how many failed acquisition attempts a worker makes before
// yielding the processor.
const lockSpins = 128

const (
	cellUnlocked = 0
	cellLocked   = 1
)

// A LockTable is a bounded array of spin-lock cells guarding bucket
// updates in the locking tier. Bucket indices are mapped onto cells by a
// position-mixing function, so several buckets may share a cell: the table
// size stays bounded at the cost of contention between aliased buckets.
// Updates to buckets on different cells proceed with no ordering
// constraint; updates to buckets on the same cell are totally ordered.
type LockTable struct {
	cells []atomic.Uint32
	mask  uint64
}

// NewLockTable creates a table with at least the given number of cells,
// rounded up to a power of two. A non-positive count selects
// DefaultLockCells.
func NewLockTable(cells int) *LockTable {
	if cells <= 0 {
		cells = DefaultLockCells
	}
	size := 1
	for size < cells {
		size <<= 1
	}
	return &LockTable{
		cells: make([]atomic.Uint32, size),
		mask:  uint64(size - 1),
	}
}

// Cells returns the table size.
func (t *LockTable) Cells() int { return len(t.cells) }

// cell maps a logical bucket index to its lock cell. Fibonacci mixing
// spreads adjacent bucket indices across the table before masking.
func (t *LockTable) cell(i uint) uint64 {
	return (uint64(i) * 0x9E3779B97F4A7C15 >> 32) & t.mask
}

// acquire spins until the bucket's cell is transitioned from unlocked to
// locked, yielding periodically, and returns the cell index for release.
// A worker never holds more than one cell at a time.
func (t *LockTable) acquire(i uint) uint64 {
	cell := t.cell(i)
	for spins := 0; !t.cells[cell].CompareAndSwap(cellUnlocked, cellLocked); spins++ {
		if spins > lockSpins {
			runtime.Gosched()
			spins = 0
		}
	}
	return cell
}

// release transitions the cell back from locked to unlocked.
func (t *LockTable) release(cell uint64) {
	if !t.cells[cell].CompareAndSwap(cellLocked, cellUnlocked) {
		panic(fmt.Sprintf("histo: released lock cell %v without holding it", cell))
	}
}
