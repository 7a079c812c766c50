// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package vr

// DisplayEvent is an asynchronous notification from a device driver
// about one display. The concrete types form a closed union; consumers
// switch on the dynamic type.
//
// Events carry full DisplayData snapshots (except Disconnect, which
// carries only the identifier) so that receivers can replace their
// cached descriptor wholesale.
type DisplayEvent interface {
	// DisplayID identifies the display the event concerns.
	DisplayID() uint32

	isDisplayEvent()
}

// ActivateReason explains why a display became active or inactive.
type ActivateReason int

const (
	// ReasonNavigation: the user navigated to VR content.
	ReasonNavigation ActivateReason = iota
	// ReasonMounted: the headset was put on.
	ReasonMounted
	// ReasonUnmounted: the headset was taken off.
	ReasonUnmounted
)

// String returns the reason name.
func (r ActivateReason) String() string {
	switch r {
	case ReasonNavigation:
		return "navigation"
	case ReasonMounted:
		return "mounted"
	case ReasonUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Connect reports a newly attached display. Sessions update their
// descriptor silently; no client-visible notification is raised.
type Connect struct {
	Display DisplayData
}

// Disconnect reports that a display was detached. Only the identifier
// is carried; the receiver marks its cached descriptor disconnected.
type Disconnect struct {
	ID uint32
}

// Activate reports that the display wants to start presenting (for
// example, the headset was put on).
type Activate struct {
	Display DisplayData
	Reason  ActivateReason
}

// Deactivate reports that the display no longer wants to present.
type Deactivate struct {
	Display DisplayData
	Reason  ActivateReason
}

// Blur reports that presentation was paused by the platform, for
// example when the user opens a system menu.
type Blur struct {
	Display DisplayData
}

// Focus reports that presentation resumed after a Blur.
type Focus struct {
	Display DisplayData
}

// PresentChange reports that the device's presenting state changed.
type PresentChange struct {
	Display    DisplayData
	Presenting bool
}

// Change reports a descriptor change (capabilities, eye parameters,
// stage bounds). Sessions update their cached descriptor but raise no
// client-visible notification; this event is a protocol extension, not
// part of the standard event set.
type Change struct {
	Display DisplayData
}

func (e Connect) DisplayID() uint32       { return e.Display.DisplayID }
func (e Disconnect) DisplayID() uint32    { return e.ID }
func (e Activate) DisplayID() uint32      { return e.Display.DisplayID }
func (e Deactivate) DisplayID() uint32    { return e.Display.DisplayID }
func (e Blur) DisplayID() uint32          { return e.Display.DisplayID }
func (e Focus) DisplayID() uint32         { return e.Display.DisplayID }
func (e PresentChange) DisplayID() uint32 { return e.Display.DisplayID }
func (e Change) DisplayID() uint32        { return e.Display.DisplayID }

func (Connect) isDisplayEvent()       {}
func (Disconnect) isDisplayEvent()    {}
func (Activate) isDisplayEvent()      {}
func (Deactivate) isDisplayEvent()    {}
func (Blur) isDisplayEvent()          {}
func (Focus) isDisplayEvent()         {}
func (PresentChange) isDisplayEvent() {}
func (Change) isDisplayEvent()        {}
