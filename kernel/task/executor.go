package task

import (
	"sync/atomic"

	"bos/kernel"
	"bos/kernel/sync"
)

// MaxTasks is the number of tasks that an Executor can track at once.
const MaxTasks = 100

var (
	// ErrTooManyTasks is returned by Spawn when the executor already
	// tracks MaxTasks tasks.
	ErrTooManyTasks = &kernel.Error{Module: "task", Message: "too many tasks"}

	errWakeQueueFull = &kernel.Error{Module: "task", Message: "wake queue overflow"}
)

// TaskID uniquely identifies a task spawned by an Executor.
type TaskID uint64

// taskWaker enqueues the id of its task to the executor's wake queue. Each
// task is queued at most once until it gets polled which bounds the wake
// queue by the number of tasks.
type taskWaker struct {
	id     TaskID
	queue  *sync.ArrayQueue[TaskID]
	halter Halter
	queued atomic.Bool
}

// Wake implements Waker. It is safe to call Wake from interrupt context.
func (w *taskWaker) Wake() {
	if w.queued.Swap(true) {
		return
	}

	if !w.queue.Push(w.id) {
		panic(errWakeQueueFull)
	}

	w.halter.Notify()
}

type taskEntry struct {
	task  Task
	waker *taskWaker
}

// Executor runs tasks on the current CPU. Tasks are only polled after being
// spawned or after their waker is woken. Apart from the wakers it hands out,
// an Executor must only be used from a single goroutine.
type Executor struct {
	tasks     map[TaskID]*taskEntry
	nextID    TaskID
	wakeQueue *sync.ArrayQueue[TaskID]
	halter    Halter
	stopped   atomic.Bool
}

// NewExecutor creates an Executor that uses halter to idle the CPU while all
// tasks are pending.
func NewExecutor(halter Halter) *Executor {
	return &Executor{
		tasks:     make(map[TaskID]*taskEntry),
		wakeQueue: sync.NewArrayQueue[TaskID](MaxTasks),
		halter:    halter,
	}
}

// Spawn adds t to the executor and schedules it for polling.
func (e *Executor) Spawn(t Task) (TaskID, *kernel.Error) {
	if len(e.tasks) >= MaxTasks {
		return 0, ErrTooManyTasks
	}

	id := e.nextID
	e.nextID++

	waker := &taskWaker{id: id, queue: e.wakeQueue, halter: e.halter}
	e.tasks[id] = &taskEntry{task: t, waker: waker}
	waker.Wake()

	return id, nil
}

// Len returns the number of tasks that have not completed yet.
func (e *Executor) Len() int {
	return len(e.tasks)
}

// RunReady polls every task whose waker was woken until no woken tasks
// remain. Tasks that complete are removed from the executor.
func (e *Executor) RunReady() {
	for {
		id, ok := e.wakeQueue.Pop()
		if !ok {
			return
		}

		entry, exists := e.tasks[id]
		if !exists {
			continue
		}

		// Wakes that occur while the task is polled must queue it again
		entry.waker.queued.Store(false)
		if entry.task.Poll(NewContext(entry.waker)) == Ready {
			delete(e.tasks, id)
		}
	}
}

// Run polls woken tasks and idles the CPU when there is nothing to do. Run
// only returns after Stop is called.
func (e *Executor) Run() {
	for !e.stopped.Load() {
		e.RunReady()
		e.halter.Halt(e.hasWork)
	}
}

// Stop causes Run to return once the current batch of woken tasks has been
// polled. Stop may be invoked from any goroutine.
func (e *Executor) Stop() {
	e.stopped.Store(true)
	e.halter.Notify()
}

func (e *Executor) hasWork() bool {
	return e.stopped.Load() || !e.wakeQueue.IsEmpty()
}
