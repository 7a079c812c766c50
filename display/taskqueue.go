// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"context"
	"errors"
	"sync"
)

// ErrSchedulerClosed is returned by Post once the scheduler has
// stopped accepting tasks.
var ErrSchedulerClosed = errors.New("task scheduler closed")

// TaskQueue runs posted tasks serially on the goroutine that calls
// Run, giving session code a control thread to be confined to. Tasks
// run in post order. Once a task is accepted it will run, even when
// the queue is shutting down, so a frame loop blocked on a dispatch
// completion is never stranded.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// NewTaskQueue returns a queue ready for Run.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post schedules fn to run on the queue's goroutine. Returns
// ErrSchedulerClosed if the queue has stopped; otherwise fn is
// guaranteed to run exactly once.
func (q *TaskQueue) Post(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrSchedulerClosed
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Done is closed when Run returns.
func (q *TaskQueue) Done() <-chan struct{} { return q.done }

// Run executes tasks until ctx is cancelled, then runs every task
// accepted before the cancellation and returns ctx's error.
func (q *TaskQueue) Run(ctx context.Context) error {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.closed = true
			remaining := q.tasks
			q.tasks = nil
			q.mu.Unlock()
			for _, fn := range remaining {
				fn()
			}
			return ctx.Err()
		case <-q.notify:
			for _, fn := range q.take() {
				fn()
			}
		}
	}
}

func (q *TaskQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}
