// Package sched provides the two execution contexts the terrain pipeline hops
// between: the single main (render) context that owns GPU and physics resources,
// and a worker pool for CPU-bound geometry.
package sched

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned when work is submitted to, or pending on, a closed executor.
var ErrClosed = errors.New("sched: executor closed")

// Executor runs functions on a specific execution context.
//
// Do queues fn, waits until it has run and returns its error. Once fn is queued
// the caller always waits for it, even if ctx is cancelled, so ownership of
// anything fn touches is never ambiguous. If ctx is already cancelled when fn is
// dequeued, fn is skipped and ctx.Err() is returned.
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

type task struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

func newTask(ctx context.Context, fn func() error) task {
	return task{ctx: ctx, fn: fn, done: make(chan error, 1)}
}

// run executes the task and reports its result. A panic in fn is returned as an
// error instead of taking down the executor goroutine.
func (t task) run() {
	defer func() {
		if r := recover(); r != nil {
			t.done <- fmt.Errorf("sched: task panicked: %v", r)
		}
	}()
	if err := t.ctx.Err(); err != nil {
		t.done <- err
		return
	}
	t.done <- t.fn()
}

// submit pushes t onto queue and waits for its result.
func submit(ctx context.Context, queue chan<- task, closed <-chan struct{}, t task) error {
	select {
	case <-closed:
		return ErrClosed
	default:
	}

	select {
	case queue <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-closed:
		return ErrClosed
	}

	select {
	case err := <-t.done:
		return err
	case <-closed:
		// The task may still have run just before close; prefer its result.
		select {
		case err := <-t.done:
			return err
		default:
			return ErrClosed
		}
	}
}
