// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/lib/service"
	"github.com/WhiteSymmetry/servo/vr"
)

// errRouterStopped is returned by socket handlers whose device service
// round trip raced the service's shutdown.
var errRouterStopped = errors.New("device service stopped")

// registerActions registers all socket API actions on the server.
// Access control is filesystem permissions on the socket path; every
// action is read-only diagnostics.
func (vs *VRService) registerActions(server *service.SocketServer) {
	server.Handle("status", vs.handleStatus)
	server.Handle("list-displays", vs.handleListDisplays)
	server.Handle("trace-status", vs.handleTraceStatus)
}

// statusResponse is the response to the "status" action.
type statusResponse struct {
	// UptimeSeconds is how long the daemon has been running.
	UptimeSeconds float64 `cbor:"uptime_seconds"`

	// Displays is the number of displays the device service knows.
	Displays int `cbor:"displays"`

	// Clients is the number of VR clients registered for event
	// delivery.
	Clients int64 `cbor:"clients"`

	// Presenting lists the active compositor sessions with their
	// submitted frame counts.
	Presenting []compositor.SessionInfo `cbor:"presenting"`

	// Tracing reports whether a frame recorder is attached.
	Tracing bool `cbor:"tracing"`
}

func (vs *VRService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	displays, err := listDisplays(ctx, vs.requests, vs.routerDone)
	if err != nil {
		return nil, err
	}
	uptime := vs.clock.Now().Sub(vs.startedAt)
	return statusResponse{
		UptimeSeconds: uptime.Seconds(),
		Displays:      len(displays),
		Clients:       vs.clients.Load(),
		Presenting:    vs.compositor.Sessions(),
		Tracing:       vs.recorder != nil,
	}, nil
}

// displaysResponse is the response to the "list-displays" action.
type displaysResponse struct {
	Displays []vr.DisplayData `cbor:"displays"`
}

func (vs *VRService) handleListDisplays(ctx context.Context, raw []byte) (any, error) {
	displays, err := listDisplays(ctx, vs.requests, vs.routerDone)
	if err != nil {
		return nil, err
	}
	return displaysResponse{Displays: displays}, nil
}

// traceStatusResponse is the response to the "trace-status" action.
// The counters are zero when tracing is disabled.
type traceStatusResponse struct {
	Enabled bool   `cbor:"enabled"`
	Output  string `cbor:"output,omitempty"`
	Samples uint64 `cbor:"samples"`
	Chunks  uint64 `cbor:"chunks"`
	Bytes   uint64 `cbor:"bytes"`
}

func (vs *VRService) handleTraceStatus(ctx context.Context, raw []byte) (any, error) {
	if vs.recorder == nil {
		return traceStatusResponse{}, nil
	}
	stats := vs.recorder.Stats()
	return traceStatusResponse{
		Enabled: true,
		Output:  vs.traceOutput,
		Samples: stats.Samples,
		Chunks:  stats.Chunks,
		Bytes:   stats.Bytes,
	}, nil
}

// listDisplays asks the device service for its display snapshots.
func listDisplays(ctx context.Context, requests chan<- devices.Request, routerDone <-chan struct{}) ([]vr.DisplayData, error) {
	reply := make(chan devices.Result[[]vr.DisplayData], 1)
	select {
	case requests <- devices.ListDisplays{Reply: reply}:
	case <-routerDone:
		return nil, errRouterStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-reply:
		return result.Value, result.Err
	case <-routerDone:
		return nil, errRouterStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
