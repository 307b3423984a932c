package sync

import "sync/atomic"

// AtomicWaker state bits.
const (
	waiting     uint32 = 0
	registering uint32 = 1 << 0
	waking      uint32 = 1 << 1
)

// Waker is implemented by values that can be notified when the event they
// are waiting for has occurred.
type Waker interface {
	Wake()
}

// AtomicWaker stores at most one Waker that is waiting for an event. A single
// consumer registers its waker before suspending while any number of
// producers, including interrupt handlers, may wake it concurrently. Wake is
// lock-free and allocation-free.
//
// A Register that overlaps with a Wake is never lost: either Wake observes
// the new waker or Register wakes it on behalf of the interrupted Wake.
type AtomicWaker struct {
	state atomic.Uint32

	// waker is only accessed by whoever moved state away from waiting.
	waker Waker
}

// Register stores waker replacing any previously registered one. If a Wake is
// in progress while Register runs, waker is woken immediately.
//
// Register must not be called concurrently with itself.
func (w *AtomicWaker) Register(waker Waker) {
	for {
		if w.state.CompareAndSwap(waiting, registering) {
			break
		}

		state := w.state.Load()
		switch {
		case state&waking != 0:
			// A concurrent Wake currently owns the slot; it will not
			// see waker so it must be woken here.
			waker.Wake()
			return
		case state&registering != 0:
			return
		}

		// The concurrent Wake completed before we could load the
		// state; retry.
	}

	w.waker = waker
	if w.state.CompareAndSwap(registering, waiting) {
		return
	}

	// A Wake raced with us and found the slot locked. The state is now
	// registering|waking so we are responsible for the wakeup.
	pending := w.waker
	w.waker = nil
	w.state.Store(waiting)
	pending.Wake()
}

// Wake takes the registered waker, if any, and wakes it.
func (w *AtomicWaker) Wake() {
	if waker := w.Take(); waker != nil {
		waker.Wake()
	}
}

// Take removes and returns the registered waker or nil if none is registered
// or the slot is currently being updated by Register.
func (w *AtomicWaker) Take() Waker {
	if w.state.Or(waking) != waiting {
		// Either a Register is in progress and will observe the waking
		// bit, or another Wake already owns the slot.
		return nil
	}

	waker := w.waker
	w.waker = nil
	w.state.And(^waking)
	return waker
}
