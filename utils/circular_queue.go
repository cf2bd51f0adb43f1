package utils

import (
	"iter"

	"github.com/oomph-ac/locomotion/oerror"
)

// CircularQueue is a fixed capacity FIFO. Appending to a full queue overwrites the oldest item.
type CircularQueue[T any] struct {
	items []T
	head  int
	tail  int
	count int
}

// NewCircularQueue creates a queue holding at most capacity items. If fill is non-nil, every
// slot is initialised with its result and the queue starts full.
func NewCircularQueue[T any](capacity int, fill func() T) *CircularQueue[T] {
	q := &CircularQueue[T]{items: make([]T, capacity)}
	if fill != nil {
		for i := range q.items {
			q.items[i] = fill()
		}
		q.count = capacity
	}
	return q
}

// Get returns the item at logical position index (0 = oldest).
func (q *CircularQueue[T]) Get(index int) (T, error) {
	var zero T
	if index < 0 || index >= q.count {
		return zero, oerror.New("circular queue: get %d out of range [0, %d)", index, q.count)
	}
	return q.items[(q.head+index)%len(q.items)], nil
}

// Last returns the newest item. The boolean is false if the queue is empty.
func (q *CircularQueue[T]) Last() (item T, ok bool) {
	if q.count == 0 {
		return item, false
	}
	return q.items[(q.head+q.count-1)%len(q.items)], true
}

// All iterates from the oldest to the newest item.
func (q *CircularQueue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range q.count {
			if !yield(q.items[(q.head+i)%len(q.items)]) {
				return
			}
		}
	}
}

// Len returns the number of items currently held.
func (q *CircularQueue[T]) Len() int {
	return q.count
}

// Cap returns the maximum number of items the queue can hold.
func (q *CircularQueue[T]) Cap() int {
	return len(q.items)
}

// Pop removes and returns the oldest item.
func (q *CircularQueue[T]) Pop() (item T, ok bool) {
	if q.count == 0 {
		return item, false
	}
	var zero T
	item = q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return item, true
}

// Append adds an item, dropping the oldest one when the queue is full.
func (q *CircularQueue[T]) Append(item T) error {
	if len(q.items) == 0 {
		return oerror.New("circular queue: append on zero-capacity queue")
	}
	q.items[q.tail] = item
	q.tail = (q.tail + 1) % len(q.items)
	if q.count == len(q.items) {
		q.head = q.tail
	} else {
		q.count++
	}
	return nil
}

// Clear drops every item.
func (q *CircularQueue[T]) Clear() {
	clear(q.items)
	q.head, q.tail, q.count = 0, 0, 0
}
