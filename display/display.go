// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/lib/clock"
	"github.com/WhiteSymmetry/servo/vr"
)

// Default depth range for frame-data projections, tunable per session
// through SetDepthNear and SetDepthFar.
const (
	defaultDepthNear = 0.01
	defaultDepthFar  = 10000.0
)

// Scheduler posts tasks to the control goroutine that owns a Display.
// TaskQueue is the in-package implementation.
type Scheduler interface {
	// Post schedules fn to run on the control goroutine, returning an
	// error if the scheduler has stopped.
	Post(fn func()) error
}

// FrameScheduler schedules animation frames for a display that is not
// presenting, standing in for the hosting surface's own frame
// scheduling. Handles live in the scheduler's namespace, not the
// session's.
type FrameScheduler interface {
	RequestFrame(fn func(now float64)) uint32
	CancelFrame(handle uint32)
}

// Config carries the dependencies of a Display. Requests, RouterDone,
// and Scheduler are required; zero values of the rest select the real
// clock, the default logger, no event notification, and no idle frame
// scheduling.
type Config struct {
	// Data is the display descriptor at construction time; device
	// events update it afterwards.
	Data   vr.DisplayData
	Client devices.ClientID

	// Requests is the device service inbox, RouterDone its shutdown
	// signal. Both come from the same devices.Service.
	Requests   chan<- devices.Request
	RouterDone <-chan struct{}

	// Scheduler posts frame-callback dispatch to the control
	// goroutine.
	Scheduler Scheduler

	Clock  clock.Clock
	Logger *slog.Logger

	// Notify observes the device events that the hosting surface
	// should see. Runs on the control goroutine.
	Notify func(vr.DisplayEvent)

	// IdleFrames handles animation-frame requests while the session
	// is not presenting.
	IdleFrames FrameScheduler
}

// presentation is the state held only while presenting. Its presence
// is the presenting flag: a session has a compositor session ID
// exactly when this is non-nil.
type presentation struct {
	session uint32
	layer   layer
}

// frameCallback is one registry entry. A cancelled entry keeps its
// slot with a nil fn so an in-flight drain skips it without index
// churn.
type frameCallback struct {
	handle uint32
	fn     func(now float64)
}

// Display is one client's session on one display. Not safe for
// concurrent use: all methods run on the owning control goroutine.
type Display struct {
	client     devices.ClientID
	requests   chan<- devices.Request
	routerDone <-chan struct{}
	scheduler  Scheduler
	clock      clock.Clock
	logger     *slog.Logger
	notify     func(vr.DisplayEvent)
	idleFrames FrameScheduler

	data      vr.DisplayData
	depthNear float64
	depthFar  float64

	// frame is the last snapshot retrieved from the device, served to
	// every reader until the next successful refresh.
	frame vr.FrameData

	// presentation is nil iff the session is idle.
	presentation *presentation

	callbacks  []frameCallback
	nextHandle uint32

	// epoch anchors frame-callback timestamps, matching the hosting
	// surface's performance-timer reference.
	epoch time.Time

	// loopDone is the completion channel of the most recent frame
	// loop. Nil until the first presentation.
	loopDone chan struct{}
}

// New builds a session for the display described by cfg.Data.
func New(cfg Config) (*Display, error) {
	if cfg.Requests == nil {
		return nil, errors.New("device service request channel is required")
	}
	if cfg.RouterDone == nil {
		return nil, errors.New("device service done channel is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Display{
		client:     cfg.Client,
		requests:   cfg.Requests,
		routerDone: cfg.RouterDone,
		scheduler:  cfg.Scheduler,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		notify:     cfg.Notify,
		idleFrames: cfg.IdleFrames,
		data:       cfg.Data.Clone(),
		depthNear:  defaultDepthNear,
		depthFar:   defaultDepthFar,
		frame:      vr.NewFrameData(),
		nextHandle: 1,
		epoch:      cfg.Clock.Now(),
	}, nil
}

// ID returns the device-assigned display identifier.
func (d *Display) ID() uint32 { return d.data.DisplayID }

// Name returns the display's human-readable name.
func (d *Display) Name() string { return d.data.DisplayName }

// Connected reports whether the device currently considers the
// display attached.
func (d *Display) Connected() bool { return d.data.Connected }

// Presenting reports whether this session holds a presentation.
func (d *Display) Presenting() bool { return d.presentation != nil }

// Capabilities returns the display's capability flags.
func (d *Display) Capabilities() vr.Capabilities { return d.data.Capabilities }

// StageParameters returns a copy of the room-scale parameters, or nil
// when the display has none.
func (d *Display) StageParameters() *vr.StageParameters {
	if d.data.StageParameters == nil {
		return nil
	}
	stage := *d.data.StageParameters
	return &stage
}

// EyeParameters returns the per-eye rendering parameters.
func (d *Display) EyeParameters(eye vr.Eye) vr.EyeParameters {
	if eye == vr.EyeRight {
		return d.data.RightEyeParameters
	}
	return d.data.LeftEyeParameters
}

// DepthNear returns the near plane used for frame-data projections.
func (d *Display) DepthNear() float64 { return d.depthNear }

// SetDepthNear sets the near plane. Non-finite values are rejected
// before they can reach the device.
func (d *Display) SetDepthNear(value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("depth near must be a finite number, got %v", value)
	}
	d.depthNear = value
	return nil
}

// DepthFar returns the far plane used for frame-data projections.
func (d *Display) DepthFar() float64 { return d.depthFar }

// SetDepthFar sets the far plane. Non-finite values are rejected.
func (d *Display) SetDepthFar(value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("depth far must be a finite number, got %v", value)
	}
	d.depthFar = value
	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// GetFrameData refreshes the cached frame data from the device and
// copies it into out. A failed refresh logs the error and serves the
// previous snapshot, and the call still reports success: a render tick
// is never lost to a transient device fault.
func (d *Display) GetFrameData(out *vr.FrameData) bool {
	reply := make(chan devices.Result[vr.FrameData], 1)
	result := roundTrip(d, devices.GetFrameData{
		Client:    d.client,
		Display:   d.data.DisplayID,
		DepthNear: d.depthNear,
		DepthFar:  d.depthFar,
		Reply:     reply,
	}, reply)
	if result.Err != nil {
		d.logger.Error("retrieving frame data", "display", d.data.DisplayID, "error", result.Err)
	} else {
		d.frame = result.Value
	}
	*out = d.frame.Clone()
	return true
}

// Pose returns the pose of the last retrieved frame without touching
// the device.
func (d *Display) Pose() vr.Pose { return d.frame.Pose.Clone() }

// ResetPose asks the device to re-zero its pose origin. Best effort:
// no reply is requested and a stopped service drops the request.
func (d *Display) ResetPose() {
	select {
	case d.requests <- devices.ResetPose{Client: d.client, Display: d.data.DisplayID}:
	case <-d.routerDone:
	}
}

// RequestAnimationFrame registers fn to run with the next frame batch
// and returns its cancellation handle. While presenting, the frame
// loop's cadence drives dispatch and handles are allocated by this
// session, strictly increasing from 1. While idle, the request is
// delegated to the configured idle scheduler; without one the request
// is dropped and 0 (never a valid session handle) is returned.
func (d *Display) RequestAnimationFrame(fn func(now float64)) uint32 {
	if d.presentation == nil {
		if d.idleFrames == nil {
			d.logger.Warn("animation frame requested while idle with no idle scheduler",
				"display", d.data.DisplayID)
			return 0
		}
		return d.idleFrames.RequestFrame(fn)
	}
	handle := d.nextHandle
	d.nextHandle++
	d.callbacks = append(d.callbacks, frameCallback{handle: handle, fn: fn})
	return handle
}

// CancelAnimationFrame prevents a registered callback from running.
// Cancelling a handle whose batch has already been dispatched is a
// no-op.
func (d *Display) CancelAnimationFrame(handle uint32) {
	if d.presentation == nil {
		if d.idleFrames != nil {
			d.idleFrames.CancelFrame(handle)
		}
		return
	}
	for i := range d.callbacks {
		if d.callbacks[i].handle == handle {
			d.callbacks[i].fn = nil
			return
		}
	}
}

// RequestPresent starts or updates a presentation with exactly one
// layer. Repeat calls while already presenting update the displayed
// layer without a device round-trip. On a fresh presentation the
// device grants a compositor session and the frame loop starts.
func (d *Display) RequestPresent(layers []LayerInit) error {
	if !d.data.Capabilities.CanPresent {
		return ErrCannotPresent
	}
	if len(layers) != 1 {
		return ErrLayerCount
	}
	validated, err := validateLayer(layers[0])
	if err != nil {
		return err
	}

	if d.presentation != nil {
		d.presentation.layer = validated
		return nil
	}

	reply := make(chan devices.Result[uint32], 1)
	result := roundTrip(d, devices.RequestPresent{
		Client:  d.client,
		Display: d.data.DisplayID,
		Reply:   reply,
	}, reply)
	if result.Err != nil {
		return fmt.Errorf("requesting presentation on display %d: %w", d.data.DisplayID, result.Err)
	}
	d.startPresent(result.Value, validated)
	return nil
}

// ExitPresent ends the presentation. The frame loop notices the
// released compositor session on its next pose sync and exits; at most
// one in-flight sync outlives the call.
func (d *Display) ExitPresent() error {
	if d.presentation == nil {
		return ErrNotPresenting
	}
	reply := make(chan devices.Result[devices.Unit], 1)
	result := roundTrip(d, devices.ExitPresent{
		Client:  d.client,
		Display: d.data.DisplayID,
		Reply:   reply,
	}, reply)
	if result.Err != nil {
		return fmt.Errorf("exiting presentation on display %d: %w", d.data.DisplayID, result.Err)
	}
	d.stopPresent()
	return nil
}

// SubmitFrame hands the rendered layer to the compositor. Outside a
// presentation this is a warning-level no-op.
func (d *Display) SubmitFrame() {
	if d.presentation == nil {
		d.logger.Warn("frame submitted while not presenting", "display", d.data.DisplayID)
		return
	}
	p := d.presentation
	p.layer.source.Compositor() <- compositor.SubmitFrame{
		Session:     p.session,
		LeftBounds:  p.layer.leftBounds,
		RightBounds: p.layer.rightBounds,
	}
}

// FrameLoopDone returns the completion channel of the most recent
// frame loop: closed once that loop has fully stopped. Nil before the
// first presentation. The channel stays valid after ExitPresent so
// callers can wait out the loop's final sync.
func (d *Display) FrameLoopDone() <-chan struct{} { return d.loopDone }

// HandleEvent applies a device event to the session. Connect and
// Change update the descriptor silently (Change is a protocol
// extension the hosting surface never observes); Disconnect only drops
// the connected flag; the rest update the descriptor and notify the
// surface. PresentChange additionally reconciles the presentation
// state with what the device reports.
func (d *Display) HandleEvent(event vr.DisplayEvent) {
	switch e := event.(type) {
	case vr.Connect:
		d.data = e.Display.Clone()
	case vr.Disconnect:
		d.data.Connected = false
	case vr.Activate:
		d.data = e.Display.Clone()
		d.notifyEvent(event)
	case vr.Deactivate:
		d.data = e.Display.Clone()
		d.notifyEvent(event)
	case vr.Blur:
		d.data = e.Display.Clone()
		d.notifyEvent(event)
	case vr.Focus:
		d.data = e.Display.Clone()
		d.notifyEvent(event)
	case vr.PresentChange:
		d.data = e.Display.Clone()
		d.reconcilePresenting(e.Presenting)
		d.notifyEvent(event)
	case vr.Change:
		d.data = e.Display.Clone()
	}
}

func (d *Display) notifyEvent(event vr.DisplayEvent) {
	if d.notify != nil {
		d.notify(event)
	}
}

// reconcilePresenting aligns the session with the device-reported
// presenting state. A "stopped presenting" report releases the local
// presentation, since the compositor session cannot outlive the device
// side. The reverse cannot be reconciled here: a session only gains a
// compositor session ID through RequestPresent.
func (d *Display) reconcilePresenting(presenting bool) {
	switch {
	case !presenting && d.presentation != nil:
		d.stopPresent()
	case presenting && d.presentation == nil:
		d.logger.Warn("device reports presenting but session is idle", "display", d.data.DisplayID)
	}
}

// startPresent records the presentation and spawns its frame loop.
func (d *Display) startPresent(session uint32, validated layer) {
	d.presentation = &presentation{session: session, layer: validated}
	d.loopDone = make(chan struct{})
	d.logger.Info("presentation started", "display", d.data.DisplayID, "session", session)
	go d.runFrameLoop(d.data.DisplayID, session, validated.source.Compositor(), d.loopDone)
}

// stopPresent clears the presentation and releases its compositor
// session.
func (d *Display) stopPresent() {
	p := d.presentation
	d.presentation = nil
	p.layer.source.Compositor() <- compositor.Release{Session: p.session}
	d.logger.Info("presentation stopped", "display", d.data.DisplayID, "session", p.session)
}

// runFrameLoop paces one presentation: pose-sync handshake with the
// compositor, one callback-dispatch task on the control goroutine,
// wait for the dispatch to finish, repeat. Everything the loop needs
// is captured at spawn; it never reads session state, so the control
// goroutine stays the sole owner. A failed pose sync is the loop's
// only healthy exit; losing the scheduler ends it too, since without a
// control goroutine there is nowhere to dispatch.
func (d *Display) runFrameLoop(display, session uint32, commands chan<- compositor.Command, loopDone chan<- struct{}) {
	defer close(loopDone)

	syncReply := make(chan error, 1)
	dispatchDone := make(chan struct{}, 1)

	commands <- compositor.Create{Session: session}
	for {
		commands <- compositor.SyncPoses{Session: session, Reply: syncReply}
		if err := <-syncReply; err != nil {
			d.logger.Debug("frame loop stopped", "display", display, "session", session, "error", err)
			return
		}

		err := d.scheduler.Post(func() {
			d.dispatchFrameCallbacks()
			dispatchDone <- struct{}{}
		})
		if err != nil {
			d.logger.Debug("frame loop lost its scheduler",
				"display", display, "session", session, "error", err)
			return
		}
		<-dispatchDone
	}
}

// dispatchFrameCallbacks drains one batch on the control goroutine.
// The registry is swapped out first, so callbacks registered during
// the batch land in the next one and each registration fires at most
// once. The whole batch shares a single timestamp. A panicking
// callback is logged and does not stop the batch.
func (d *Display) dispatchFrameCallbacks() {
	callbacks := d.callbacks
	d.callbacks = nil
	if len(callbacks) == 0 {
		return
	}
	now := float64(d.clock.Now().Sub(d.epoch)) / float64(time.Millisecond)
	for _, entry := range callbacks {
		if entry.fn == nil {
			continue
		}
		d.invokeFrameCallback(entry, now)
	}
}

func (d *Display) invokeFrameCallback(entry frameCallback, now float64) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("frame callback panicked",
				"display", d.data.DisplayID, "handle", entry.handle, "panic", r)
		}
	}()
	entry.fn(now)
}

// roundTrip sends req to the device service and waits for its single
// reply. Both stages guard against service shutdown: the service
// drains queued requests with error replies after closing its done
// channel, so a closed done channel is followed by one last
// non-blocking reply check before the error is synthesized locally.
func roundTrip[T any](d *Display, req devices.Request, reply chan devices.Result[T]) devices.Result[T] {
	select {
	case d.requests <- req:
	case <-d.routerDone:
		return devices.Result[T]{Err: devices.ErrServiceStopped}
	}
	select {
	case result := <-reply:
		return result
	case <-d.routerDone:
		select {
		case result := <-reply:
			return result
		default:
			return devices.Result[T]{Err: devices.ErrServiceStopped}
		}
	}
}
