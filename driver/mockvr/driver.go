// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package mockvr

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/WhiteSymmetry/servo/vr"
)

// Config configures a Driver. Zero values select the built-in default
// profile, display IDs starting at 1, and the default logger.
type Config struct {
	Profiles       []Profile
	FirstDisplayID uint32
	Logger         *slog.Logger
}

// Driver serves simulated displays. It implements vr.Driver.
type Driver struct {
	logger   *slog.Logger
	devices  []*Device
	byID     map[uint32]*Device
	sessions atomic.Uint32

	mu      sync.Mutex
	pending []vr.DisplayEvent
}

// New validates the configured profiles and builds their devices.
// Display IDs are assigned sequentially from Config.FirstDisplayID.
func New(cfg Config) (*Driver, error) {
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = []Profile{DefaultProfile()}
	}
	if cfg.FirstDisplayID == 0 {
		cfg.FirstDisplayID = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	driver := &Driver{
		logger: cfg.Logger,
		byID:   make(map[uint32]*Device, len(cfg.Profiles)),
	}
	for i, profile := range cfg.Profiles {
		profile = profile.withDefaults()
		if issues := Validate(profile); len(issues) > 0 {
			return nil, fmt.Errorf("display profile %d (%q): %s",
				i, profile.Name, strings.Join(issues, "; "))
		}
		device := newDevice(cfg.FirstDisplayID+uint32(i), profile, &driver.sessions)
		driver.devices = append(driver.devices, device)
		driver.byID[device.id] = device
	}
	return driver, nil
}

// Name identifies the backend.
func (d *Driver) Name() string { return "mockvr" }

// Displays returns the simulated devices.
func (d *Driver) Displays() []vr.Device {
	displays := make([]vr.Device, len(d.devices))
	for i, device := range d.devices {
		displays[i] = device
	}
	return displays
}

// PollEvents returns the events queued since the previous poll.
func (d *Driver) PollEvents() []vr.DisplayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := d.pending
	d.pending = nil
	return events
}

// Device returns the simulated device with the given display ID, for
// failure injection and state inspection.
func (d *Driver) Device(display uint32) (*Device, bool) {
	device, ok := d.byID[display]
	return device, ok
}

// PushEvent queues a display event for the next poll. Safe to call
// from any goroutine.
func (d *Driver) PushEvent(event vr.DisplayEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, event)
}

// Disconnect marks the display detached and queues the corresponding
// event. Subsequent frame and present calls on the device fail until
// Reconnect.
func (d *Driver) Disconnect(display uint32) {
	device, ok := d.byID[display]
	if !ok {
		d.logger.Warn("disconnect for unknown mock display", "display", display)
		return
	}
	device.setConnected(false)
	d.PushEvent(vr.Disconnect{ID: display})
}

// Reconnect marks the display attached again and queues a connect
// event carrying the refreshed descriptor.
func (d *Driver) Reconnect(display uint32) {
	device, ok := d.byID[display]
	if !ok {
		d.logger.Warn("reconnect for unknown mock display", "display", display)
		return
	}
	device.setConnected(true)
	d.PushEvent(vr.Connect{Display: device.Data()})
}
