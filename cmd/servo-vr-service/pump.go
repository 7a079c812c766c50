// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/lib/clock"
)

// eventPump drives the device service's event poll pass on a fixed
// cadence. Polling pauses when a poll reply reports that no clients
// remain registered and resumes on the next Kick.
type eventPump struct {
	requests   chan<- devices.Request
	routerDone <-chan struct{}
	interval   time.Duration
	clock      clock.Clock
	logger     *slog.Logger

	kick chan struct{}
	done chan struct{}
}

func newEventPump(requests chan<- devices.Request, routerDone <-chan struct{}, interval time.Duration, clk clock.Clock, logger *slog.Logger) *eventPump {
	return &eventPump{
		requests:   requests,
		routerDone: routerDone,
		interval:   interval,
		clock:      clk,
		logger:     logger,
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Kick resumes polling after a pause and triggers an immediate poll.
// Safe from any goroutine.
func (p *eventPump) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Done is closed when run returns.
func (p *eventPump) Done() <-chan struct{} { return p.done }

// run polls until ctx is cancelled or the device service stops. The
// ticker keeps ticking while polling is paused; the active flag gates
// the sends, and a kick polls right away instead of waiting out the
// current interval.
func (p *eventPump) run(ctx context.Context) {
	defer close(p.done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	active := true
	for {
		poll := false
		select {
		case <-ctx.Done():
			return
		case <-p.routerDone:
			return
		case <-p.kick:
			active = true
			poll = true
		case <-ticker.C:
			poll = active
		}
		if !poll {
			continue
		}
		remaining, ok := p.poll(ctx)
		if !ok {
			return
		}
		if !remaining {
			p.logger.Debug("event pump paused, no clients registered")
			active = false
		}
	}
}

// poll runs one PollEvents round trip. ok is false when the daemon or
// the device service is shutting down.
func (p *eventPump) poll(ctx context.Context) (remaining, ok bool) {
	reply := make(chan bool, 1)
	select {
	case p.requests <- devices.PollEvents{Reply: reply}:
	case <-ctx.Done():
		return false, false
	case <-p.routerDone:
		return false, false
	}
	select {
	case remaining = <-reply:
		return remaining, true
	case <-ctx.Done():
		return false, false
	case <-p.routerDone:
		return false, false
	}
}
