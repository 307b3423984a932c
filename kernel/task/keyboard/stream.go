package keyboard

import (
	"bos/kernel/task"
)

var (
	// registerWakerFn is used by tests to simulate interrupts that arrive
	// right after the waker is registered.
	registerWakerFn = func(waker task.Waker) {
		wakerSlot.Register(waker)
	}
)

// ScancodeStream is the consumer side of the scancode queue. It implements
// task.Stream[uint8] and never reports task.Exhausted.
type ScancodeStream struct {
	_ struct{}
}

// NewScancodeStream creates the scancode queue with the given capacity and
// returns a stream for reading from it. Only a single stream may ever be
// created; a second call panics.
func NewScancodeStream(capacity int) *ScancodeStream {
	if err := InitScancodeQueue(capacity); err != nil {
		panic(err)
	}

	return &ScancodeStream{}
}

// PollNext returns the next scancode or task.Pending if the queue is empty.
// When Pending is returned, the waker of cx is guaranteed to be woken by the
// next AddScancode.
//
// The queue is checked a second time after registering the waker. A scancode
// that arrives between the first check and the registration would otherwise
// find no waker to wake and stay in the queue until some unrelated event
// polled the task again.
func (s *ScancodeStream) PollNext(cx *task.Context) (uint8, task.PollState) {
	if scancode, ok := PopScancode(); ok {
		return scancode, task.Ready
	}

	registerWakerFn(cx.Waker())

	if scancode, ok := PopScancode(); ok {
		// No wakeup is needed since the caller is still running
		wakerSlot.Take()
		return scancode, task.Ready
	}

	return 0, task.Pending
}
