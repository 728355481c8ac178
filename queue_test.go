package deferred

import "testing"

func TestThunkQueueFIFOAcrossChunks(t *testing.T) {
	q := &thunkQueue{}

	// Enough to span several chunks.
	n := queueChunkSize*2 + 57
	got := make([]int, 0, n)
	for i := 0; i < n; i++ {
		i := i
		q.Push(func() { got = append(got, i) })
	}

	if q.Len() != n {
		t.Fatalf("expected length %d, got %d", n, q.Len())
	}

	for {
		fn, ok := q.Pop()
		if !ok {
			break
		}
		fn()
	}

	if len(got) != n {
		t.Fatalf("expected %d thunks executed, got %d", n, len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order violated at %d: got %d", i, v)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, length %d", q.Len())
	}
}

func TestThunkQueueInterleavedPushPop(t *testing.T) {
	q := &thunkQueue{}

	next := 0
	expect := 0
	for round := 0; round < 100; round++ {
		for i := 0; i < 3; i++ {
			v := next
			next++
			q.Push(func() {
				if v != expect {
					t.Fatalf("expected %d, got %d", expect, v)
				}
				expect++
			})
		}
		for i := 0; i < 2; i++ {
			fn, ok := q.Pop()
			if !ok {
				t.Fatal("unexpected empty queue")
			}
			fn()
		}
	}

	for {
		fn, ok := q.Pop()
		if !ok {
			break
		}
		fn()
	}
	if expect != next {
		t.Fatalf("expected %d thunks executed, got %d", next, expect)
	}
}

func TestThunkQueuePopEmpty(t *testing.T) {
	q := &thunkQueue{}
	if fn, ok := q.Pop(); ok || fn != nil {
		t.Fatal("expected empty pop to report false")
	}
}

func TestThunkQueueReset(t *testing.T) {
	q := &thunkQueue{}
	for i := 0; i < queueChunkSize+10; i++ {
		q.Push(func() { t.Fatal("discarded thunk ran") })
	}

	q.Reset()

	if q.Len() != 0 {
		t.Fatalf("expected length 0 after reset, got %d", q.Len())
	}
	if fn, ok := q.Pop(); ok || fn != nil {
		t.Fatal("expected empty queue after reset")
	}

	// Queue remains usable.
	ran := false
	q.Push(func() { ran = true })
	fn, ok := q.Pop()
	if !ok {
		t.Fatal("expected one thunk")
	}
	fn()
	if !ran {
		t.Error("thunk did not run")
	}
}
