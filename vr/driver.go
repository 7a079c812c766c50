// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package vr

// Driver is the SPI a hardware backend implements. A driver owns zero
// or more devices and surfaces their asynchronous state changes through
// PollEvents.
//
// Drivers are owned by the device service goroutine: no method is ever
// called concurrently with another, and implementations need no
// internal locking.
type Driver interface {
	// Name identifies the backend ("mockvr", "replay", "openvr").
	Name() string

	// Displays returns the devices this driver currently knows about.
	// The device service calls this once at startup and indexes the
	// result by display ID.
	Displays() []Device

	// PollEvents returns the display events that occurred since the
	// previous poll, in occurrence order. Returns an empty slice when
	// nothing happened.
	PollEvents() []DisplayEvent
}

// Device is one display managed by a driver. Methods return snapshots
// the caller owns: implementations must not retain or reuse pointer
// fields of returned values.
type Device interface {
	// Data returns the current display descriptor.
	Data() DisplayData

	// FrameData returns the pose and eye matrices for the next frame.
	// Projection matrices are computed from the supplied depth range.
	FrameData(depthNear, depthFar float64) (FrameData, error)

	// ResetPose re-zeros the device's reported orientation and
	// position at the current head pose.
	ResetPose() error

	// StartPresent claims the device for exclusive presentation and
	// returns the compositor session identifier. Fails if the device
	// is already presenting.
	StartPresent() (uint32, error)

	// StopPresent releases the presentation claim. Fails if the
	// device is not presenting.
	StopPresent() error
}
