// Package keyboard bridges keyboard interrupts to the task executor. The
// interrupt handler pushes raw scancodes into a process-wide lock-free queue
// and a task consumes them through a ScancodeStream.
package keyboard

import (
	"sync/atomic"

	"bos/kernel"
	"bos/kernel/kfmt"
	"bos/kernel/sync"
)

// DefaultQueueCapacity is the number of scancodes that can be buffered
// before new ones are dropped.
const DefaultQueueCapacity = 100

// PushOutcome describes what happened to a scancode passed to AddScancode.
type PushOutcome uint8

const (
	// Pushed indicates that the scancode was queued.
	Pushed PushOutcome = iota

	// Dropped indicates that the queue was full and the scancode was
	// discarded.
	Dropped

	// NotInitialized indicates that the queue has not been created yet
	// and the scancode was discarded.
	NotInitialized
)

// String implements fmt.Stringer for PushOutcome.
func (o PushOutcome) String() string {
	switch o {
	case Pushed:
		return "pushed"
	case Dropped:
		return "dropped"
	case NotInitialized:
		return "not initialized"
	default:
		return "unknown"
	}
}

var (
	// ErrQueueAlreadyInitialized is returned by InitScancodeQueue when the
	// scancode queue has already been created.
	ErrQueueAlreadyInitialized = &kernel.Error{Module: "kbd", Message: "scancode queue already initialized"}

	// ErrInvalidQueueCapacity is returned by InitScancodeQueue when the
	// requested capacity is not positive.
	ErrInvalidQueueCapacity = &kernel.Error{Module: "kbd", Message: "scancode queue capacity must be greater than zero"}

	errQueueNotInitialized = &kernel.Error{Module: "kbd", Message: "scancode queue not initialized"}

	// scancodeQueue is set exactly once by InitScancodeQueue.
	scancodeQueue atomic.Pointer[sync.ArrayQueue[uint8]]

	// wakerSlot holds the waker of the task waiting for scancodes.
	wakerSlot sync.AtomicWaker
)

// InitScancodeQueue creates the scancode queue. Only the first call succeeds;
// subsequent calls return ErrQueueAlreadyInitialized and leave the existing
// queue untouched.
func InitScancodeQueue(capacity int) *kernel.Error {
	if capacity <= 0 {
		return ErrInvalidQueueCapacity
	}

	if scancodeQueue.Load() != nil {
		return ErrQueueAlreadyInitialized
	}

	if !scancodeQueue.CompareAndSwap(nil, sync.NewArrayQueue[uint8](capacity)) {
		return ErrQueueAlreadyInitialized
	}

	return nil
}

// AddScancode is called by the keyboard interrupt handler to queue a
// scancode. It never blocks or allocates. If the queue is full the new
// scancode is dropped; in that case and when the queue has not been created
// yet a warning is printed. Callers may ignore the returned outcome.
//
// The warnings go through kfmt, whose formatting buffers are shared with the
// interrupted code. A warning raised while a task is inside kfmt.Fprintf can
// garble that task's output line.
func AddScancode(scancode uint8) PushOutcome {
	queue := scancodeQueue.Load()
	if queue == nil {
		kfmt.Printf("WARNING: scancode queue uninitialized\n")
		return NotInitialized
	}

	if !queue.Push(scancode) {
		kfmt.Printf("WARNING: scancode queue full; dropping keyboard input\n")
		return Dropped
	}

	wakerSlot.Wake()
	return Pushed
}

// PopScancode removes the oldest queued scancode. It returns false if the
// queue is empty and panics if the queue has not been created.
func PopScancode() (uint8, bool) {
	queue := scancodeQueue.Load()
	if queue == nil {
		panic(errQueueNotInitialized)
	}

	return queue.Pop()
}
