package utils

import "testing"

func TestCircularQueueOverwritesOldest(t *testing.T) {
	q := NewCircularQueue[int](3, nil)
	for i := 1; i <= 5; i++ {
		if err := q.Append(i); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", q.Len())
	}
	first, err := q.Get(0)
	if err != nil || first != 3 {
		t.Fatalf("expected oldest item 3, got %d (%v)", first, err)
	}
	last, ok := q.Last()
	if !ok || last != 5 {
		t.Fatalf("expected newest item 5, got %d", last)
	}
	var seen []int
	for v := range q.All() {
		seen = append(seen, v)
	}
	if len(seen) != 3 || seen[0] != 3 || seen[2] != 5 {
		t.Fatalf("unexpected iteration order %v", seen)
	}
}

func TestCircularQueuePop(t *testing.T) {
	q := NewCircularQueue(2, func() int { return 7 })
	if q.Len() != 2 {
		t.Fatalf("expected prefilled queue to be full, got %d", q.Len())
	}
	if v, ok := q.Pop(); !ok || v != 7 {
		t.Fatalf("expected to pop 7, got %d", v)
	}
	_ = q.Append(9)
	_ = q.Append(10)
	if v, _ := q.Get(0); v != 9 {
		t.Fatalf("expected 9 after wraparound, got %d", v)
	}
	if _, err := q.Get(2); err == nil {
		t.Fatalf("expected out of range error")
	}
	q.Clear()
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue after clear")
	}
	if err := NewCircularQueue[int](0, nil).Append(1); err == nil {
		t.Fatalf("expected error appending to zero-capacity queue")
	}
}
