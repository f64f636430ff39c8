package sched

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool runs CPU-bound functions on a fixed set of goroutines.
// Jobs must not touch main-context resources.
type WorkerPool struct {
	jobs    chan task
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool starts a pool. workers <= 0 uses runtime.NumCPU().
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 1)
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobs:    make(chan task, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for range workers {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// Do implements Executor.
func (p *WorkerPool) Do(ctx context.Context, fn func() error) error {
	return submit(ctx, p.jobs, p.ctx.Done(), newTask(ctx, fn))
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.jobs:
			t.run()
		case <-p.ctx.Done():
			return
		}
	}
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// QueueLength returns the current number of jobs waiting for a worker.
func (p *WorkerPool) QueueLength() int {
	return len(p.jobs)
}

// Shutdown stops the workers and waits for running jobs to finish.
// Callers blocked in Do return ErrClosed.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
