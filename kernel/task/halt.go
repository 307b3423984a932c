package task

import (
	"context"

	"bos/kernel/cpu"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	disableInterruptsFn       = cpu.DisableInterrupts
	enableInterruptsFn        = cpu.EnableInterrupts
	enableInterruptsAndHaltFn = cpu.EnableInterruptsAndHalt
)

// Halter idles the CPU while the executor has no work.
type Halter interface {
	// Halt suspends execution until new work might be available. It
	// must return immediately if hasWork reports true once the halter is
	// ready to be woken up by Notify.
	Halt(hasWork func() bool)

	// Notify wakes up a pending or future Halt call.
	Notify()
}

// CPUHalter halts the CPU until the next interrupt arrives.
type CPUHalter struct{}

// Halt disables interrupts before checking for work so that a wakeup from an
// interrupt handler cannot slip in between the check and the halt
// instruction. STI only takes effect after the following instruction so the
// interrupt is delivered once the CPU is halted.
func (CPUHalter) Halt(hasWork func() bool) {
	disableInterruptsFn()
	if hasWork() {
		enableInterruptsFn()
		return
	}
	enableInterruptsAndHaltFn()
}

// Notify is a no-op; wakers are only triggered from interrupt handlers which
// already bring the CPU out of the halted state.
func (CPUHalter) Notify() {}

// ChanHalter blocks the calling goroutine until Notify is called or an
// interrupt is raised. It is used when tasks run on top of a hosted Go runtime
// instead of bare metal. Interrupt handlers passed to Raise run on the
// goroutine that called Halt, the same way a halted CPU services interrupts
// on the kernel stack.
type ChanHalter struct {
	notifyCh chan struct{}
	irqCh    chan func()
}

// NewChanHalter returns a ready to use ChanHalter.
func NewChanHalter() *ChanHalter {
	return &ChanHalter{
		notifyCh: make(chan struct{}, 1),
		irqCh:    make(chan func()),
	}
}

// Halt blocks until Notify or Raise is called unless hasWork returns true.
func (h *ChanHalter) Halt(hasWork func() bool) {
	if hasWork() {
		return
	}

	select {
	case <-h.notifyCh:
	case handler := <-h.irqCh:
		handler()
	}
}

// Notify wakes up a blocked Halt call. Notifications that arrive while no
// Halt call is blocked are coalesced into one.
func (h *ChanHalter) Notify() {
	select {
	case h.notifyCh <- struct{}{}:
	default:
	}
}

// Raise blocks until a Halt call accepts handler or ctx is done. Handlers are
// executed one at a time and never while tasks are being polled.
func (h *ChanHalter) Raise(ctx context.Context, handler func()) error {
	select {
	case h.irqCh <- handler:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
