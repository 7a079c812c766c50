// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"github.com/google/uuid"

	"github.com/WhiteSymmetry/servo/vr"
)

// ClientID identifies one client context (one hosting surface) across
// all its sessions. Generated with NewClientID; comparable, usable as a
// map key.
type ClientID uuid.UUID

// NewClientID returns a fresh random client identifier.
func NewClientID() ClientID {
	return ClientID(uuid.New())
}

// String returns the canonical UUID form.
func (c ClientID) String() string {
	return uuid.UUID(c).String()
}

// Result is the reply payload for requests that expect an answer:
// either a value or an error, never both. Exactly one Result is
// delivered per non-nil reply channel.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Fail wraps an error.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Unit is the value type for replies that carry no data.
type Unit = struct{}

// Request is the closed union of messages a session can send to the
// device service. Reply channels must be buffered with capacity 1 so
// the service never blocks on a reply send.
type Request interface {
	isRequest()
}

// RegisterClient associates a client with event fan-out. Events for
// every display are delivered to the sink in occurrence order. The
// sink channel is serviced by a dedicated pump goroutine owned by the
// service; it is closed when the client unregisters or the service
// shuts down. Fire and forget.
type RegisterClient struct {
	Client ClientID
	Events chan<- vr.DisplayEvent
}

// UnregisterClient removes a client from event fan-out and closes its
// sink once queued events have drained. Fire and forget.
type UnregisterClient struct {
	Client ClientID
}

// PollEvents drives one poll pass over all drivers, updating cached
// descriptors and fanning events out to registered clients. The reply
// reports whether any clients remain registered, so an external event
// pump knows when polling is no longer needed.
type PollEvents struct {
	Reply chan<- bool
}

// ListDisplays asks for a snapshot of every known display.
type ListDisplays struct {
	Reply chan<- Result[[]vr.DisplayData]
}

// GetFrameData asks the device for the next frame's pose and matrices.
// The device computes projection matrices from the supplied depth
// range.
type GetFrameData struct {
	Client    ClientID
	Display   uint32
	DepthNear float64
	DepthFar  float64
	Reply     chan<- Result[vr.FrameData]
}

// ResetPose re-zeros the device's reported pose. Reply may be nil;
// call sites that do not care about the outcome send it fire and
// forget.
type ResetPose struct {
	Client  ClientID
	Display uint32
	Reply   chan<- Result[Unit]
}

// RequestPresent attempts to acquire exclusive presentation rights on
// a display. The reply value is the compositor session identifier.
// Fails if the display cannot present or is already claimed.
type RequestPresent struct {
	Client  ClientID
	Display uint32
	Reply   chan<- Result[uint32]
}

// ExitPresent releases presentation rights previously acquired by the
// same client.
type ExitPresent struct {
	Client  ClientID
	Display uint32
	Reply   chan<- Result[Unit]
}

// Exit shuts the service down. Requests already queued behind Exit are
// drained with an error reply.
type Exit struct{}

func (RegisterClient) isRequest()   {}
func (UnregisterClient) isRequest() {}
func (PollEvents) isRequest()       {}
func (ListDisplays) isRequest()     {}
func (GetFrameData) isRequest()     {}
func (ResetPose) isRequest()        {}
func (RequestPresent) isRequest()   {}
func (ExitPresent) isRequest()      {}
func (Exit) isRequest()             {}
