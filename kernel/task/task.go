// Package task implements a minimal cooperative task model. Tasks are
// polled by an Executor and report whether they completed; a task that cannot
// make progress registers the Waker of its Context with whatever event source
// it waits on and returns Pending.
package task

import "bos/kernel/sync"

// PollState describes the outcome of polling a task or a stream.
type PollState uint8

const (
	// Pending indicates that no progress can be made until the waker of
	// the polling context is woken.
	Pending PollState = iota

	// Ready indicates that a task completed or that a stream produced a
	// value.
	Ready

	// Exhausted indicates that a stream will not produce any more values.
	Exhausted
)

// String implements fmt.Stringer for PollState.
func (s PollState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Waker notifies an executor that a task should be polled again.
type Waker = sync.Waker

// Context is passed to each Poll call and carries the waker of the task
// being polled.
type Context struct {
	waker Waker
}

// NewContext returns a Context that carries waker.
func NewContext(waker Waker) *Context {
	return &Context{waker: waker}
}

// Waker returns the waker for the task being polled.
func (cx *Context) Waker() Waker {
	return cx.waker
}

// Task is a unit of cooperative work. Poll must never block; it returns Ready
// once the task has completed and Pending otherwise.
type Task interface {
	Poll(cx *Context) PollState
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(cx *Context) PollState

// Poll implements Task.
func (fn TaskFunc) Poll(cx *Context) PollState {
	return fn(cx)
}

// Stream is a source of values that become available asynchronously.
// PollNext returns a value together with Ready, the zero value together with
// Pending when no value is available yet, or Exhausted when the stream has
// ended.
type Stream[T any] interface {
	PollNext(cx *Context) (T, PollState)
}
