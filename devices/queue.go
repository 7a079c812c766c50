// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"sync"

	"github.com/WhiteSymmetry/servo/vr"
)

// eventQueue is the per-client delivery buffer between the service
// loop and one client's event sink. The service appends under the
// mutex and signals the pump through the notify channel (capacity 1);
// the pump drains in FIFO order and forwards to the sink. The queue is
// unbounded: back-pressure from a slow client stalls only its own pump
// goroutine, never the service loop.
//
// Thread-safe: push and drain run on different goroutines.
type eventQueue struct {
	mu     sync.Mutex
	events []vr.DisplayEvent
	closed bool

	notify chan struct{}
	// stop is closed by the service to terminate the pump without
	// waiting for queued events.
	stop chan struct{}
	// drained is closed by the pump when it returns, so the service
	// can tell when the sink has been released.
	drained chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// push appends events in order and wakes the pump. Events pushed after
// close are dropped.
func (q *eventQueue) push(events ...vr.DisplayEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, events...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// close stops the pump. Queued but undelivered events are discarded;
// the client is going away, so there is nobody to deliver them to.
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.stop)
}

// take removes and returns all queued events.
func (q *eventQueue) take() []vr.DisplayEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

// pump forwards queued events to the sink in order until stopped. Runs
// on its own goroutine, one per registered client. Closes the sink on
// return so the client observes the end of its subscription.
func (q *eventQueue) pump(sink chan<- vr.DisplayEvent) {
	defer close(q.drained)
	defer close(sink)

	for {
		select {
		case <-q.stop:
			return
		case <-q.notify:
			for _, event := range q.take() {
				select {
				case sink <- event:
				case <-q.stop:
					return
				}
			}
		}
	}
}
