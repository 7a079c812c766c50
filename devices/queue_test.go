// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"testing"
	"time"

	"github.com/WhiteSymmetry/servo/lib/testutil"
	"github.com/WhiteSymmetry/servo/vr"
)

func TestEventQueueDeliversInOrder(t *testing.T) {
	t.Parallel()

	queue := newEventQueue()
	sink := make(chan vr.DisplayEvent)
	go queue.pump(sink)
	defer queue.close()

	queue.push(vr.Disconnect{ID: 1})
	queue.push(vr.Disconnect{ID: 2}, vr.Disconnect{ID: 3})

	for want := uint32(1); want <= 3; want++ {
		event := testutil.RequireReceive(t, sink, testTimeout, "event %d", want)
		if got := event.DisplayID(); got != want {
			t.Errorf("event order: got display %d, want %d", got, want)
		}
	}
}

func TestEventQueuePushNeverBlocks(t *testing.T) {
	t.Parallel()

	// The sink is unbuffered and nobody reads it. Pushes must still
	// return immediately.
	queue := newEventQueue()
	sink := make(chan vr.DisplayEvent)
	go queue.pump(sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			queue.push(vr.Disconnect{ID: uint32(i)})
		}
	}()
	testutil.RequireClosed(t, done, testTimeout, "pushes to a stalled client")

	queue.close()
	testutil.RequireClosed(t, queue.drained, testTimeout, "pump exit")
}

func TestEventQueueCloseStopsPump(t *testing.T) {
	t.Parallel()

	queue := newEventQueue()
	sink := make(chan vr.DisplayEvent)
	go queue.pump(sink)

	queue.push(vr.Disconnect{ID: 1})
	testutil.RequireReceive(t, sink, testTimeout, "first event")

	queue.close()
	testutil.RequireClosed(t, queue.drained, testTimeout, "pump exit")

	select {
	case _, open := <-sink:
		if open {
			t.Error("sink delivered an event after close")
		}
	case <-time.After(testTimeout):
		t.Fatal("sink not closed after queue close")
	}
}

func TestEventQueueCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	queue := newEventQueue()
	sink := make(chan vr.DisplayEvent, 1)
	go queue.pump(sink)

	queue.close()
	queue.close()
	testutil.RequireClosed(t, queue.drained, testTimeout, "pump exit")

	// Pushes after close are dropped without panicking.
	queue.push(vr.Disconnect{ID: 1})
}
