package scheduler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDequeOwnerOrder(t *testing.T) {
	d := newDeque(4)
	tasks := make([]*subtask, 5)
	for i := range tasks {
		tasks[i] = &subtask{id: i}
		d.push(tasks[i])
	}
	// owner pops newest first
	if st := d.pop(); st != tasks[4] {
		t.Fatalf("pop returned %v, want subtask 4", st.id)
	}
	// thieves take oldest first
	if st := d.steal(); st != tasks[0] {
		t.Fatalf("steal returned %v, want subtask 0", st.id)
	}
	if st := d.steal(); st != tasks[1] {
		t.Fatalf("steal returned %v, want subtask 1", st.id)
	}
	if st := d.pop(); st != tasks[3] {
		t.Fatalf("pop returned %v, want subtask 3", st.id)
	}
	if st := d.pop(); st != tasks[2] {
		t.Fatalf("pop returned %v, want subtask 2", st.id)
	}
	if st := d.pop(); st != nil {
		t.Fatalf("pop on empty deque returned %v", st.id)
	}
	if st := d.steal(); st != nil {
		t.Fatalf("steal on empty deque returned %v", st.id)
	}
}

func TestDequeGrows(t *testing.T) {
	d := newDeque(2)
	const n = 200
	for i := 0; i < n; i++ {
		d.push(&subtask{id: i})
	}
	for i := n - 1; i >= 0; i-- {
		st := d.pop()
		if st == nil || st.id != i {
			t.Fatalf("pop %v returned %v", i, st)
		}
	}
}

func TestDequeDead(t *testing.T) {
	d := newDeque(4)
	d.push(&subtask{})
	d.dead.Store(true)
	if st := d.steal(); st != nil {
		t.Fatal("steal from a dead deque succeeded")
	}
	// the owner may still drain its own work
	if st := d.pop(); st == nil {
		t.Fatal("owner pop from a dead deque failed")
	}
}

func TestDequeConcurrentSteals(t *testing.T) {
	const n = 10000
	const thieves = 4

	d := newDeque(8)
	seen := make([]atomic.Int32, n)
	var taken atomic.Int64

	var wg sync.WaitGroup
	wg.Add(thieves)
	stop := make(chan struct{})
	for i := 0; i < thieves; i++ {
		go func() {
			defer wg.Done()
			for {
				if st := d.steal(); st != nil {
					seen[st.id].Add(1)
					taken.Add(1)
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	// owner interleaves pushes and pops with the thieves
	for i := 0; i < n; i++ {
		d.push(&subtask{id: i})
		if i%3 == 0 {
			if st := d.pop(); st != nil {
				seen[st.id].Add(1)
				taken.Add(1)
			}
		}
	}
	for {
		st := d.pop()
		if st == nil {
			break
		}
		seen[st.id].Add(1)
		taken.Add(1)
	}
	// every subtask was either popped by the owner or stolen
	for taken.Load() < n {
		runtime.Gosched()
	}
	close(stop)
	wg.Wait()

	if got := taken.Load(); got != n {
		t.Fatalf("pops and steals took %v subtasks, want %v", got, n)
	}
	for i := range seen {
		if count := seen[i].Load(); count != 1 {
			t.Fatalf("subtask %v taken %v times", i, count)
		}
	}
}
