package sched

import (
	"context"
	"sync"
	"sync/atomic"
)

// MainQueue is the main (render) execution context. Tasks queued with Do run
// one at a time on whichever single goroutine drains the queue, either once per
// frame via Drain or continuously via Run.
//
// Never call Do from inside a main task: the drainer would wait on itself.
type MainQueue struct {
	tasks     chan task
	closed    chan struct{}
	closeOnce sync.Once

	inTask   atomic.Bool
	executed atomic.Uint64
}

// NewMainQueue creates a main queue buffering up to size pending tasks.
func NewMainQueue(size int) *MainQueue {
	if size < 1 {
		size = 1
	}
	return &MainQueue{
		tasks:  make(chan task, size),
		closed: make(chan struct{}),
	}
}

// Do implements Executor.
func (q *MainQueue) Do(ctx context.Context, fn func() error) error {
	return submit(ctx, q.tasks, q.closed, newTask(ctx, fn))
}

// Drain runs up to budget pending tasks without blocking and returns how many
// ran. A budget of zero or less runs everything currently queued.
func (q *MainQueue) Drain(budget int) int {
	n := 0
	for budget <= 0 || n < budget {
		select {
		case <-q.closed:
			return n
		default:
		}
		select {
		case t := <-q.tasks:
			q.exec(t)
			n++
		default:
			return n
		}
	}
	return n
}

// Run drains tasks as they arrive until ctx is done or the queue is closed.
// Headless tools and tests use it in place of a frame loop.
func (q *MainQueue) Run(ctx context.Context) error {
	for {
		select {
		case t := <-q.tasks:
			q.exec(t)
		case <-ctx.Done():
			return ctx.Err()
		case <-q.closed:
			return ErrClosed
		}
	}
}

func (q *MainQueue) exec(t task) {
	q.inTask.Store(true)
	t.run()
	q.inTask.Store(false)
	q.executed.Add(1)
}

// InTask reports whether a main task is executing right now.
// Resource factories use it to catch calls made off the main context.
func (q *MainQueue) InTask() bool {
	return q.inTask.Load()
}

// Pending returns the number of queued tasks.
func (q *MainQueue) Pending() int {
	return len(q.tasks)
}

// Executed returns the number of tasks run so far.
func (q *MainQueue) Executed() uint64 {
	return q.executed.Load()
}

// Close stops the queue. Callers waiting in Do return ErrClosed.
func (q *MainQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
