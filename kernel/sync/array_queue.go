// Package sync provides lock-free synchronization primitives that can be
// shared between interrupt handlers and regular kernel code.
package sync

import (
	"sync/atomic"

	"bos/kernel"
)

var errInvalidCapacity = &kernel.Error{Module: "sync", Message: "queue capacity must be greater than zero"}

// queueSlot holds a single queue element. The stamp encodes the lap and
// index of the head or tail position that owns the slot next: a producer may
// write to the slot when stamp equals the tail position and a consumer may
// read from it when stamp equals the head position plus one.
type queueSlot[T any] struct {
	stamp atomic.Uint64
	value T
}

// ArrayQueue is a bounded multi-producer multi-consumer FIFO queue backed by
// a preallocated ring of slots. Push and Pop never block, never allocate and
// never take a lock so they can be used from interrupt context.
//
// Head and tail positions combine a slot index with a lap counter. The lap
// is a multiple of oneLap, the smallest power of two greater than the
// capacity, which keeps the index bits and the lap bits apart.
type ArrayQueue[T any] struct {
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte

	buffer   []queueSlot[T]
	capacity uint64
	oneLap   uint64
}

// NewArrayQueue allocates a queue that holds up to capacity elements. It
// panics if capacity is not positive.
func NewArrayQueue[T any](capacity int) *ArrayQueue[T] {
	if capacity <= 0 {
		panic(errInvalidCapacity)
	}

	q := &ArrayQueue[T]{
		buffer:   make([]queueSlot[T], capacity),
		capacity: uint64(capacity),
		oneLap:   nextPowerOfTwo(uint64(capacity) + 1),
	}

	// Slot i is initially writable by the producer at position {lap: 0, index: i}
	for i := range q.buffer {
		q.buffer[i].stamp.Store(uint64(i))
	}

	return q
}

// Cap returns the maximum number of elements the queue can hold.
func (q *ArrayQueue[T]) Cap() int {
	return int(q.capacity)
}

// Push appends value to the tail of the queue. If the queue is full, value is
// discarded and Push returns false.
//
// Push gives up instead of waiting when the oldest element is still being
// removed by a Pop that was interrupted halfway; the queue is reported as
// full in that case.
func (q *ArrayQueue[T]) Push(value T) bool {
	tail := q.tail.Load()

	for {
		index := tail & (q.oneLap - 1)
		slot := &q.buffer[index]
		stamp := slot.stamp.Load()

		switch {
		case tail == stamp:
			// The slot is free; try to claim it by moving the tail
			if q.tail.CompareAndSwap(tail, q.advance(tail)) {
				slot.value = value
				slot.stamp.Store(tail + 1)
				return true
			}
			tail = q.tail.Load()
		case stamp+q.oneLap == tail+1:
			// The slot still holds the element pushed during the
			// previous lap.
			head := q.head.Load()
			if head+q.oneLap == tail {
				return false
			}

			nextTail := q.tail.Load()
			if nextTail == tail {
				// A consumer has claimed the element but has not
				// released the slot yet.
				return false
			}
			tail = nextTail
		default:
			// Another producer claimed the slot; retry with the new tail
			tail = q.tail.Load()
		}
	}
}

// Pop removes the element at the head of the queue. It returns false if the
// queue is empty.
func (q *ArrayQueue[T]) Pop() (T, bool) {
	var zero T
	head := q.head.Load()

	for {
		index := head & (q.oneLap - 1)
		slot := &q.buffer[index]
		stamp := slot.stamp.Load()

		switch {
		case head+1 == stamp:
			// The slot holds a value; try to claim it by moving the head
			if q.head.CompareAndSwap(head, q.advance(head)) {
				value := slot.value
				slot.value = zero

				// Hand the slot to the producer of the next lap
				slot.stamp.Store(head + q.oneLap)
				return value, true
			}
			head = q.head.Load()
		case stamp == head:
			if q.tail.Load() == head {
				return zero, false
			}

			// A producer claimed the slot but has not stored its value yet
			head = q.head.Load()
		default:
			// Another consumer claimed the slot; retry with the new head
			head = q.head.Load()
		}
	}
}

// Len returns the number of elements in the queue. The result is a snapshot
// and may be stale by the time it is returned if the queue is used
// concurrently.
func (q *ArrayQueue[T]) Len() int {
	for {
		tail := q.tail.Load()
		head := q.head.Load()

		// Retry until head and tail are read from a consistent state
		if q.tail.Load() != tail {
			continue
		}

		headIndex := head & (q.oneLap - 1)
		tailIndex := tail & (q.oneLap - 1)

		switch {
		case headIndex < tailIndex:
			return int(tailIndex - headIndex)
		case headIndex > tailIndex:
			return int(q.capacity - headIndex + tailIndex)
		case tail == head:
			return 0
		default:
			return int(q.capacity)
		}
	}
}

// IsEmpty returns true if the queue holds no elements.
func (q *ArrayQueue[T]) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

// advance returns the position that follows pos, wrapping around to the
// first slot of the next lap after the last slot.
func (q *ArrayQueue[T]) advance(pos uint64) uint64 {
	if index := pos & (q.oneLap - 1); index+1 < q.capacity {
		return pos + 1
	}

	return (pos &^ (q.oneLap - 1)) + q.oneLap
}

// nextPowerOfTwo returns the smallest power of two that is >= v.
func nextPowerOfTwo(v uint64) uint64 {
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}
