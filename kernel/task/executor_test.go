package task

import (
	"context"
	"testing"
	"time"
)

func TestExecutorCompletesReadyTasks(t *testing.T) {
	e := NewExecutor(NewChanHalter())

	var pollCount int
	if _, err := e.Spawn(TaskFunc(func(*Context) PollState {
		pollCount++
		return Ready
	})); err != nil {
		t.Fatal(err)
	}

	if exp, got := 1, e.Len(); got != exp {
		t.Fatalf("expected executor to track %d task; got %d", exp, got)
	}

	e.RunReady()
	e.RunReady()

	if pollCount != 1 {
		t.Errorf("expected task to be polled once; got %d", pollCount)
	}

	if got := e.Len(); got != 0 {
		t.Errorf("expected completed task to be removed; executor tracks %d tasks", got)
	}
}

func TestExecutorOnlyPollsWokenTasks(t *testing.T) {
	e := NewExecutor(NewChanHalter())

	var (
		waker     Waker
		pollCount int
		done      bool
	)

	if _, err := e.Spawn(TaskFunc(func(cx *Context) PollState {
		pollCount++
		if done {
			return Ready
		}
		waker = cx.Waker()
		return Pending
	})); err != nil {
		t.Fatal(err)
	}

	e.RunReady()
	if pollCount != 1 {
		t.Fatalf("expected task to be polled once after Spawn; got %d", pollCount)
	}

	// Without a wakeup the task must not be polled again
	e.RunReady()
	if pollCount != 1 {
		t.Fatalf("expected pending task not to be polled without a wakeup; got %d polls", pollCount)
	}

	// Multiple wakeups before the next poll result in a single poll
	waker.Wake()
	waker.Wake()
	waker.Wake()
	e.RunReady()
	if pollCount != 2 {
		t.Fatalf("expected woken task to be polled once; got %d polls", pollCount)
	}

	done = true
	waker.Wake()
	e.RunReady()
	if pollCount != 3 || e.Len() != 0 {
		t.Fatalf("expected task to complete after its third poll; polls: %d, tasks: %d", pollCount, e.Len())
	}

	// Waking a completed task is harmless
	waker.Wake()
	e.RunReady()
	if pollCount != 3 {
		t.Fatalf("expected completed task not to be polled; got %d polls", pollCount)
	}
}

func TestExecutorWakeDuringPoll(t *testing.T) {
	e := NewExecutor(NewChanHalter())

	var pollCount int
	if _, err := e.Spawn(TaskFunc(func(cx *Context) PollState {
		pollCount++
		if pollCount == 1 {
			// An event arrives while the task is being polled
			cx.Waker().Wake()
			return Pending
		}
		return Ready
	})); err != nil {
		t.Fatal(err)
	}

	e.RunReady()
	if pollCount != 2 {
		t.Fatalf("expected task to be polled again after waking itself; got %d polls", pollCount)
	}
}

func TestExecutorTooManyTasks(t *testing.T) {
	e := NewExecutor(NewChanHalter())
	pending := TaskFunc(func(*Context) PollState { return Pending })

	for i := 0; i < MaxTasks; i++ {
		id, err := e.Spawn(pending)
		if err != nil {
			t.Fatalf("[task %d] unexpected error: %v", i, err)
		}

		if id != TaskID(i) {
			t.Fatalf("[task %d] expected task id %d; got %d", i, i, id)
		}
	}

	if _, err := e.Spawn(pending); err != ErrTooManyTasks {
		t.Fatalf("expected to get ErrTooManyTasks; got %v", err)
	}

	// Every task is queued exactly once so the wake queue cannot overflow
	e.RunReady()
	if got := e.Len(); got != MaxTasks {
		t.Fatalf("expected %d pending tasks; got %d", MaxTasks, got)
	}
}

func TestExecutorRunAndStop(t *testing.T) {
	e := NewExecutor(NewChanHalter())
	wakerCh := make(chan Waker, 1)

	var pollCount int
	if _, err := e.Spawn(TaskFunc(func(cx *Context) PollState {
		pollCount++
		if pollCount == 1 {
			wakerCh <- cx.Waker()
			return Pending
		}

		e.Stop()
		return Ready
	})); err != nil {
		t.Fatal(err)
	}

	runDone := make(chan struct{})
	go func() {
		e.Run()
		close(runDone)
	}()

	// Simulate an interrupt handler waking the task from another context
	select {
	case waker := <-wakerCh:
		waker.Wake()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first poll")
	}

	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}

	if pollCount != 2 {
		t.Fatalf("expected task to be polled twice; got %d", pollCount)
	}
}

func TestExecutorStopFromAnotherGoroutine(t *testing.T) {
	e := NewExecutor(NewChanHalter())

	runDone := make(chan struct{})
	go func() {
		e.Run()
		close(runDone)
	}()

	e.Stop()

	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}

func TestCPUHalter(t *testing.T) {
	defer func(origDisable, origEnable, origEnableAndHalt func()) {
		disableInterruptsFn = origDisable
		enableInterruptsFn = origEnable
		enableInterruptsAndHaltFn = origEnableAndHalt
	}(disableInterruptsFn, enableInterruptsFn, enableInterruptsAndHaltFn)

	var calls []string
	disableInterruptsFn = func() { calls = append(calls, "cli") }
	enableInterruptsFn = func() { calls = append(calls, "sti") }
	enableInterruptsAndHaltFn = func() { calls = append(calls, "sti;hlt") }

	specs := []struct {
		hasWork  bool
		expCalls []string
	}{
		{false, []string{"cli", "check", "sti;hlt"}},
		{true, []string{"cli", "check", "sti"}},
	}

	for specIndex, spec := range specs {
		calls = nil

		var h CPUHalter
		h.Notify()
		h.Halt(func() bool {
			calls = append(calls, "check")
			return spec.hasWork
		})

		if len(calls) != len(spec.expCalls) {
			t.Errorf("[spec %d] expected calls %v; got %v", specIndex, spec.expCalls, calls)
			continue
		}

		for i := range calls {
			if calls[i] != spec.expCalls[i] {
				t.Errorf("[spec %d] expected calls %v; got %v", specIndex, spec.expCalls, calls)
				break
			}
		}
	}
}

func TestChanHalter(t *testing.T) {
	h := NewChanHalter()

	// Returns immediately when work is pending
	h.Halt(func() bool { return true })

	// A notification sent before Halt is not lost
	h.Notify()
	h.Notify()
	h.Halt(func() bool { return false })

	done := make(chan struct{})
	go func() {
		h.Halt(func() bool { return false })
		close(done)
	}()

	h.Notify()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Halt to return")
	}
}

func TestChanHalterRaise(t *testing.T) {
	h := NewChanHalter()

	var handled int
	done := make(chan struct{})
	go func() {
		h.Halt(func() bool { return false })
		close(done)
	}()

	if err := h.Raise(context.Background(), func() { handled++ }); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Halt to return")
	}

	if handled != 1 {
		t.Fatalf("expected interrupt handler to run once; ran %d times", handled)
	}

	// Nobody is halted so Raise gives up once the context is done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.Raise(ctx, func() { handled++ }); err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded; got %v", err)
	}

	if handled != 1 {
		t.Fatalf("expected handler not to run without a Halt call; ran %d times", handled)
	}
}
