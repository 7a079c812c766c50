// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/display"
	"github.com/WhiteSymmetry/servo/lib/clock"
	"github.com/WhiteSymmetry/servo/vr"
)

// presenter hosts an in-process presenting session, standing in for a
// hosting page: it registers a client, claims the display, and drives
// the frame cycle (pose fetch, frame submit, next callback) on its own
// control goroutine.
type presenter struct {
	display *display.Display
	queue   *display.TaskQueue
	client  devices.ClientID
	logger  *slog.Logger
}

// presenterConfig carries the daemon plumbing a presenter attaches to.
type presenterConfig struct {
	Display    uint32
	Requests   chan<- devices.Request
	RouterDone <-chan struct{}
	Compositor chan<- compositor.Command
	Clients    *atomic.Int64
	Clock      clock.Clock
	Logger     *slog.Logger
}

// headlessSurface adapts the daemon's compositor inbox to the layer
// source the session registry renders to.
type headlessSurface struct {
	commands chan<- compositor.Command
}

func (s headlessSurface) Compositor() chan<- compositor.Command { return s.commands }

// startPresenter registers a client, starts the control goroutine,
// and begins presenting on the configured display. The presentation
// runs until ctx is cancelled or the device service stops.
func startPresenter(ctx context.Context, cfg presenterConfig) (*presenter, error) {
	data, err := findDisplay(ctx, cfg.Requests, cfg.RouterDone, cfg.Display)
	if err != nil {
		return nil, err
	}

	client := devices.NewClientID()
	events := make(chan vr.DisplayEvent, 16)
	select {
	case cfg.Requests <- devices.RegisterClient{Client: client, Events: events}:
	case <-cfg.RouterDone:
		return nil, errRouterStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	cfg.Clients.Add(1)

	queue := display.NewTaskQueue()
	go queue.Run(ctx)

	d, err := display.New(display.Config{
		Data:       data,
		Client:     client,
		Requests:   cfg.Requests,
		RouterDone: cfg.RouterDone,
		Scheduler:  queue,
		Clock:      cfg.Clock,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	p := &presenter{
		display: d,
		queue:   queue,
		client:  client,
		logger:  cfg.Logger,
	}

	// Route device events onto the control goroutine. The sink closes
	// when the client unregisters or the device service stops, which
	// is also when the client stops counting.
	go func() {
		defer cfg.Clients.Add(-1)
		for event := range events {
			if postErr := queue.Post(func() { d.HandleEvent(event) }); postErr != nil {
				// The control goroutine is gone (shutdown). Keep
				// draining so the service's event pump never blocks
				// on this sink.
				for range events {
				}
				return
			}
		}
	}()

	// Claim the display and start the frame cycle on the control
	// goroutine.
	started := make(chan error, 1)
	err = queue.Post(func() {
		presentErr := d.RequestPresent([]display.LayerInit{{
			Source: headlessSurface{commands: cfg.Compositor},
		}})
		if presentErr != nil {
			started <- presentErr
			return
		}
		d.RequestAnimationFrame(p.step)
		started <- nil
	})
	if err != nil {
		return nil, err
	}
	select {
	case err := <-started:
		if err != nil {
			p.unregister(cfg.Requests, cfg.RouterDone)
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cfg.Logger.Info("presenting",
		"display", data.DisplayID,
		"name", data.DisplayName,
		"client", client,
	)
	return p, nil
}

// step is the frame callback: one hosting-page frame. Each pose fetch
// is a device round trip, so an attached trace recorder captures one
// sample per frame.
func (p *presenter) step(now float64) {
	if !p.display.Presenting() {
		return
	}
	var frame vr.FrameData
	p.display.GetFrameData(&frame)
	p.display.SubmitFrame()
	p.display.RequestAnimationFrame(p.step)
}

// unregister releases the client after a failed presentation start.
func (p *presenter) unregister(requests chan<- devices.Request, routerDone <-chan struct{}) {
	select {
	case requests <- devices.UnregisterClient{Client: p.client}:
	case <-routerDone:
	}
}

// findDisplay resolves a display ID against the device service's
// current snapshots.
func findDisplay(ctx context.Context, requests chan<- devices.Request, routerDone <-chan struct{}, id uint32) (vr.DisplayData, error) {
	displays, err := listDisplays(ctx, requests, routerDone)
	if err != nil {
		return vr.DisplayData{}, err
	}
	for _, data := range displays {
		if data.DisplayID == id {
			return data, nil
		}
	}
	return vr.DisplayData{}, fmt.Errorf("display %d not found", id)
}
