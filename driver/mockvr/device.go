// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package mockvr

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/WhiteSymmetry/servo/vr"
)

const (
	// yawPerFrame is the synthetic head rotation advanced on every
	// served frame: one full turn every 1024 frames.
	yawPerFrame = math.Pi / 512

	// headHeight is the synthetic head position above the floor for
	// position-tracking profiles, in meters.
	headHeight = 1.5
)

// Device is one simulated display. The device service calls the
// vr.Device methods from its own goroutine; the injection methods are
// additionally safe to call from tests and control surfaces while the
// service runs.
type Device struct {
	id       uint32
	sessions *atomic.Uint32

	mu           sync.Mutex
	data         vr.DisplayData
	frameCounter uint64
	resetAt      uint64
	presenting   bool
	session      uint32
	frameErr     error
	presentErr   error
}

func newDevice(id uint32, profile Profile, sessions *atomic.Uint32) *Device {
	return &Device{
		id:       id,
		sessions: sessions,
		data:     profile.displayData(id),
	}
}

// Data returns the current display descriptor.
func (d *Device) Data() vr.DisplayData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data.Clone()
}

// FrameData advances the synthetic pose one step and returns it with
// projection matrices computed for the supplied depth range.
func (d *Device) FrameData(depthNear, depthFar float64) (vr.FrameData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameErr != nil {
		return vr.FrameData{}, d.frameErr
	}
	if !d.data.Connected {
		return vr.FrameData{}, fmt.Errorf("mock display %d is disconnected", d.id)
	}

	d.frameCounter++
	yaw := yawPerFrame * float64(d.frameCounter-d.resetAt)
	if !d.data.Capabilities.HasOrientation {
		yaw = 0
	}

	frame := vr.FrameData{
		Timestamp:             d.frameCounter,
		LeftProjectionMatrix:  projectionMatrix(d.data.LeftEyeParameters.FieldOfView, depthNear, depthFar),
		RightProjectionMatrix: projectionMatrix(d.data.RightEyeParameters.FieldOfView, depthNear, depthFar),
	}

	var position [3]float32
	if d.data.Capabilities.HasPosition {
		position = [3]float32{0, headHeight, 0}
		p := position
		frame.Pose.Position = &p
	}
	if d.data.Capabilities.HasOrientation {
		orientation := yawQuaternion(yaw)
		frame.Pose.Orientation = &orientation
	}

	frame.LeftViewMatrix = viewMatrix(yaw, position, d.data.LeftEyeParameters.Offset)
	frame.RightViewMatrix = viewMatrix(yaw, position, d.data.RightEyeParameters.Offset)
	return frame, nil
}

// ResetPose re-zeros the synthetic orientation at the current frame.
func (d *Device) ResetPose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetAt = d.frameCounter
	return nil
}

// StartPresent claims the device and returns a new compositor session
// identifier, unique across the driver's devices.
func (d *Device) StartPresent() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.presentErr != nil {
		return 0, d.presentErr
	}
	if !d.data.Connected {
		return 0, fmt.Errorf("mock display %d is disconnected", d.id)
	}
	if d.presenting {
		return 0, fmt.Errorf("mock display %d is already presenting", d.id)
	}
	d.presenting = true
	d.session = d.sessions.Add(1)
	return d.session, nil
}

// StopPresent releases the presentation claim.
func (d *Device) StopPresent() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.presenting {
		return fmt.Errorf("mock display %d is not presenting", d.id)
	}
	d.presenting = false
	d.session = 0
	return nil
}

// Presenting reports whether the device currently holds a
// presentation session.
func (d *Device) Presenting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenting
}

// SetFrameError makes subsequent FrameData calls fail with err. Pass
// nil to restore normal service.
func (d *Device) SetFrameError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frameErr = err
}

// SetPresentError makes subsequent StartPresent calls fail with err.
// Pass nil to restore normal service.
func (d *Device) SetPresentError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentErr = err
}

func (d *Device) setConnected(connected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.Connected = connected
}
