package scheduler_test

import (
	"testing"

	"github.com/lyra-lang/multicore/scheduler"
)

func TestPartitionSkewBound(t *testing.T) {
	for iterations := 0; iterations <= 200; iterations++ {
		for workers := 1; workers <= 16; workers++ {
			info := scheduler.Partition(iterations, workers, scheduler.Static)
			if info.NSubtasks > workers {
				t.Fatalf("Partition(%v, %v): %v subtasks for %v workers", iterations, workers, info.NSubtasks, workers)
			}
			if iterations > 0 && info.NSubtasks == 0 {
				t.Fatalf("Partition(%v, %v): no subtasks", iterations, workers)
			}
			total := 0
			smallest, largest := iterations, 0
			for k := 0; k < info.NSubtasks; k++ {
				start, end := info.Range(k)
				if start > end {
					t.Fatalf("Partition(%v, %v): subtask %v has inverted range [%v, %v)", iterations, workers, k, start, end)
				}
				if k == 0 && start != 0 {
					t.Fatalf("Partition(%v, %v): first subtask starts at %v", iterations, workers, start)
				}
				if k > 0 {
					if prevStart, prevEnd := info.Range(k - 1); prevEnd != start {
						t.Fatalf("Partition(%v, %v): gap between subtask %v [%v, %v) and subtask %v starting at %v",
							iterations, workers, k-1, prevStart, prevEnd, k, start)
					}
				}
				size := end - start
				total += size
				if size < smallest {
					smallest = size
				}
				if size > largest {
					largest = size
				}
			}
			if total != iterations {
				t.Fatalf("Partition(%v, %v): subtasks cover %v iterations", iterations, workers, total)
			}
			if info.NSubtasks > 0 && largest-smallest > 1 {
				t.Fatalf("Partition(%v, %v): skew %v exceeds 1", iterations, workers, largest-smallest)
			}
		}
	}
}

func TestPartitionRemainder(t *testing.T) {
	info := scheduler.Partition(10, 4, scheduler.Static)
	if info.IterPerSubtask != 2 || info.Remainder != 2 || info.NSubtasks != 4 {
		t.Fatalf("Partition(10, 4) = %+v", info)
	}
	// the first Remainder subtasks receive the extra iteration
	for k, want := range [][2]int{{0, 3}, {3, 6}, {6, 8}, {8, 10}} {
		start, end := info.Range(k)
		if start != want[0] || end != want[1] {
			t.Errorf("Range(%v) = [%v, %v), want [%v, %v)", k, start, end, want[0], want[1])
		}
	}
}

func TestPartitionFewIterations(t *testing.T) {
	info := scheduler.Partition(3, 8, scheduler.Dynamic)
	if info.NSubtasks != 3 || info.IterPerSubtask != 1 || info.Remainder != 0 {
		t.Fatalf("Partition(3, 8) = %+v", info)
	}
}

func TestPartitionPanicsOnInvalidInput(t *testing.T) {
	mustPanic(t, func() { scheduler.Partition(-1, 4, scheduler.Static) })
	mustPanic(t, func() { scheduler.Partition(4, 0, scheduler.Static) })
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		kind           scheduler.Kind
		unboundedLoops bool
		want           scheduler.Policy
	}{
		{"scan", scheduler.KindScan, false, scheduler.Static},
		{"scan with loops", scheduler.KindScan, true, scheduler.Static},
		{"histogram", scheduler.KindHistogram, false, scheduler.Static},
		{"histogram with loops", scheduler.KindHistogram, true, scheduler.Static},
		{"bounded map", scheduler.KindMap, false, scheduler.Static},
		{"unbounded map", scheduler.KindMap, true, scheduler.Dynamic},
		{"bounded commutative reduce", scheduler.KindCommutativeReduce, false, scheduler.Static},
		{"unbounded commutative reduce", scheduler.KindCommutativeReduce, true, scheduler.Dynamic},
		{"noncommutative reduce", scheduler.KindNoncommutativeReduce, false, scheduler.Static},
		{"unbounded noncommutative reduce", scheduler.KindNoncommutativeReduce, true, scheduler.Static},
	}
	for _, test := range tests {
		if got := scheduler.Classify(test.kind, test.unboundedLoops); got != test.want {
			t.Errorf("%v: Classify = %v, want %v", test.name, got, test.want)
		}
	}
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	f()
}
