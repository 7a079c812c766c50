// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay implements a VR display driver that serves frames
// recorded in a trace file. Displays keep the identifiers and
// descriptors captured at recording time; each frame request returns
// the next recorded sample for that display, wrapping at the end of
// the recording. Playback is deterministic, which makes the driver
// useful for integration tests and for debugging session behavior
// against captured hardware data.
package replay

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/WhiteSymmetry/servo/trace"
	"github.com/WhiteSymmetry/servo/vr"
)

// Driver serves the displays found in one recording. It implements
// vr.Driver.
type Driver struct {
	devices  []*Device
	sessions atomic.Uint32
}

// Open loads a trace file and builds a driver over its displays.
func Open(path string) (*Driver, error) {
	recording, err := trace.ReadFile(path)
	if err != nil {
		return nil, err
	}
	driver, err := New(recording)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return driver, nil
}

// New builds a driver from a loaded recording. Every recorded
// descriptor becomes a device; descriptors are marked connected
// regardless of their state at capture time. Samples for displays
// without a descriptor are ignored.
func New(recording *trace.Recording) (*Driver, error) {
	if recording == nil || len(recording.Descriptors) == 0 {
		return nil, errors.New("trace has no display descriptors")
	}

	framesByDisplay := make(map[uint32][]vr.FrameData)
	for _, sample := range recording.Samples {
		framesByDisplay[sample.Display] = append(framesByDisplay[sample.Display], sample.Frame)
	}

	driver := &Driver{}
	for _, descriptor := range recording.Descriptors {
		data := descriptor.Clone()
		data.Connected = true
		driver.devices = append(driver.devices, &Device{
			data:     data,
			frames:   framesByDisplay[data.DisplayID],
			sessions: &driver.sessions,
		})
	}
	return driver, nil
}

// Name identifies the backend.
func (d *Driver) Name() string { return "replay" }

// Displays returns the recorded displays.
func (d *Driver) Displays() []vr.Device {
	displays := make([]vr.Device, len(d.devices))
	for i, device := range d.devices {
		displays[i] = device
	}
	return displays
}

// PollEvents always returns nothing: a recording carries no
// asynchronous display events.
func (d *Driver) PollEvents() []vr.DisplayEvent { return nil }

// Device is one replayed display.
type Device struct {
	data     vr.DisplayData
	frames   []vr.FrameData
	sessions *atomic.Uint32

	mu         sync.Mutex
	served     uint64
	presenting bool
}

// Data returns the descriptor captured at recording time.
func (d *Device) Data() vr.DisplayData {
	return d.data.Clone()
}

// FrameData returns the next recorded frame. The depth range is
// ignored: the recorded projection matrices already embody the range
// in effect at capture time. Timestamps are replaced with a local
// monotonic counter so playback never appears to rewind when the
// recording wraps.
func (d *Device) FrameData(depthNear, depthFar float64) (vr.FrameData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.frames) == 0 {
		return vr.FrameData{}, fmt.Errorf("no recorded frames for display %d", d.data.DisplayID)
	}
	frame := d.frames[d.served%uint64(len(d.frames))].Clone()
	d.served++
	frame.Timestamp = d.served
	return frame, nil
}

// ResetPose is a no-op: recorded poses cannot be re-zeroed.
func (d *Device) ResetPose() error { return nil }

// StartPresent claims the device and returns a new session
// identifier, unique across the driver's devices.
func (d *Device) StartPresent() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.presenting {
		return 0, fmt.Errorf("replay display %d is already presenting", d.data.DisplayID)
	}
	d.presenting = true
	return d.sessions.Add(1), nil
}

// StopPresent releases the presentation claim.
func (d *Device) StopPresent() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.presenting {
		return fmt.Errorf("replay display %d is not presenting", d.data.DisplayID)
	}
	d.presenting = false
	return nil
}
