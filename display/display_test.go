// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/lib/clock"
	"github.com/WhiteSymmetry/servo/lib/testutil"
	"github.com/WhiteSymmetry/servo/vr"
)

const testTimeout = 5 * time.Second

// startRouter serves device requests with the supplied handler until
// the test ends. The returned done channel is never closed; shutdown
// tests build their own.
func startRouter(t *testing.T, handle func(devices.Request)) (chan devices.Request, chan struct{}) {
	t.Helper()
	requests := make(chan devices.Request, 16)
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case req := <-requests:
				handle(req)
			case <-stop:
				return
			}
		}
	}()
	t.Cleanup(func() { close(stop) })
	return requests, done
}

// grantAll satisfies every request: presentations are granted with the
// given compositor session and frame data comes back at its zero
// timestamp.
func grantAll(session uint32) func(devices.Request) {
	return func(req devices.Request) {
		switch q := req.(type) {
		case devices.RequestPresent:
			q.Reply <- devices.Ok(session)
		case devices.ExitPresent:
			q.Reply <- devices.Ok(devices.Unit{})
		case devices.GetFrameData:
			q.Reply <- devices.Ok(vr.NewFrameData())
		case devices.ResetPose:
			if q.Reply != nil {
				q.Reply <- devices.Ok(devices.Unit{})
			}
		}
	}
}

// manualScheduler collects posted tasks so the test goroutine can run
// them, making the test the control thread.
type manualScheduler struct {
	mu     sync.Mutex
	closed bool
	tasks  chan func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(chan func(), 64)}
}

func (s *manualScheduler) Post(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.tasks <- fn
	return nil
}

func (s *manualScheduler) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// nextTask waits for the frame loop to post a dispatch task.
func (s *manualScheduler) nextTask(t *testing.T) func() {
	t.Helper()
	return testutil.RequireReceive(t, s.tasks, testTimeout, "scheduler task")
}

// runOne runs the next posted task on the caller's goroutine.
func (s *manualScheduler) runOne(t *testing.T) {
	t.Helper()
	s.nextTask(t)()
}

type fakeSurface struct {
	commands chan compositor.Command
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{commands: make(chan compositor.Command, 16)}
}

func (s *fakeSurface) Compositor() chan<- compositor.Command { return s.commands }

// requireNoCommand asserts the surface saw no further compositor
// traffic.
func (s *fakeSurface) requireNoCommand(t *testing.T) {
	t.Helper()
	select {
	case cmd := <-s.commands:
		t.Fatalf("unexpected compositor command %T%+v", cmd, cmd)
	default:
	}
}

// recordingFrames implements FrameScheduler for idle-state delegation
// tests.
type recordingFrames struct {
	nextHandle uint32
	requested  []uint32
	cancelled  []uint32
}

func (f *recordingFrames) RequestFrame(func(now float64)) uint32 {
	f.nextHandle++
	f.requested = append(f.requested, f.nextHandle)
	return f.nextHandle
}

func (f *recordingFrames) CancelFrame(handle uint32) {
	f.cancelled = append(f.cancelled, handle)
}

func presentableData(id uint32) vr.DisplayData {
	return vr.DisplayData{
		DisplayID:   id,
		DisplayName: "Test HMD",
		Connected:   true,
		Capabilities: vr.Capabilities{
			HasOrientation: true,
			CanPresent:     true,
		},
	}
}

type testDeps struct {
	requests  chan devices.Request
	done      chan struct{}
	scheduler *manualScheduler
	clock     *clock.FakeClock
}

func newTestDisplay(t *testing.T, data vr.DisplayData, handle func(devices.Request)) (*Display, *testDeps) {
	t.Helper()
	deps := &testDeps{
		scheduler: newManualScheduler(),
		clock:     clock.Fake(time.Unix(5000, 0)),
	}
	deps.requests, deps.done = startRouter(t, handle)
	d, err := New(Config{
		Data:       data,
		Client:     devices.NewClientID(),
		Requests:   deps.requests,
		RouterDone: deps.done,
		Scheduler:  deps.scheduler,
		Clock:      deps.clock,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d, deps
}

// present starts a presentation on a fresh surface and consumes the
// loop's Create command.
func present(t *testing.T, d *Display) *fakeSurface {
	t.Helper()
	surface := newFakeSurface()
	if err := d.RequestPresent([]LayerInit{{Source: surface}}); err != nil {
		t.Fatalf("RequestPresent failed: %v", err)
	}
	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "Create command")
	if _, ok := cmd.(compositor.Create); !ok {
		t.Fatalf("first compositor command = %T, want Create", cmd)
	}
	return surface
}

// syncPoses consumes the loop's next pose-sync command.
func syncPoses(t *testing.T, surface *fakeSurface) compositor.SyncPoses {
	t.Helper()
	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "SyncPoses command")
	sync, ok := cmd.(compositor.SyncPoses)
	if !ok {
		t.Fatalf("compositor command = %T, want SyncPoses", cmd)
	}
	return sync
}

// finishLoop unblocks the pending pose sync with an error and waits
// for the frame loop to stop.
func finishLoop(t *testing.T, d *Display, pending compositor.SyncPoses) {
	t.Helper()
	pending.Reply <- errors.New("session released")
	testutil.RequireClosed(t, d.FrameLoopDone(), testTimeout, "frame loop exit")
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	if d.Presenting() {
		t.Error("fresh session is presenting")
	}
	if got := d.DepthNear(); got != 0.01 {
		t.Errorf("DepthNear = %v, want 0.01", got)
	}
	if got := d.DepthFar(); got != 10000.0 {
		t.Errorf("DepthFar = %v, want 10000.0", got)
	}
	if d.FrameLoopDone() != nil {
		t.Error("FrameLoopDone non-nil before first presentation")
	}
	if got := d.ID(); got != 1 {
		t.Errorf("ID = %d, want 1", got)
	}

	// The pre-present frame cache serves identity matrices.
	var frame vr.FrameData
	if !d.GetFrameData(&frame) {
		t.Error("GetFrameData returned false")
	}
	if frame.LeftProjectionMatrix != vr.IdentityMatrix() {
		t.Error("initial frame cache is not identity")
	}
}

func TestRequestPresentRejectsWhenCannotPresent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	data := presentableData(1)
	data.Capabilities.CanPresent = false
	d, _ := newTestDisplay(t, data, func(req devices.Request) {
		calls.Add(1)
		grantAll(7)(req)
	})

	err := d.RequestPresent([]LayerInit{{Source: newFakeSurface()}})
	if !errors.Is(err, ErrCannotPresent) {
		t.Errorf("error = %v, want ErrCannotPresent", err)
	}
	if calls.Load() != 0 {
		t.Errorf("device saw %d requests, want 0", calls.Load())
	}
}

func TestRequestPresentRejectsLayerCount(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		calls.Add(1)
		grantAll(7)(req)
	})

	if err := d.RequestPresent(nil); !errors.Is(err, ErrLayerCount) {
		t.Errorf("no layers: error = %v, want ErrLayerCount", err)
	}
	two := []LayerInit{{Source: newFakeSurface()}, {Source: newFakeSurface()}}
	if err := d.RequestPresent(two); !errors.Is(err, ErrLayerCount) {
		t.Errorf("two layers: error = %v, want ErrLayerCount", err)
	}
	if calls.Load() != 0 {
		t.Errorf("device saw %d requests, want 0", calls.Load())
	}
}

func TestRequestPresentRejectsBadBounds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		calls.Add(1)
		grantAll(7)(req)
	})

	err := d.RequestPresent([]LayerInit{{
		Source:     newFakeSurface(),
		LeftBounds: []float32{0, 0, 1},
	}})
	if err == nil || !strings.Contains(err.Error(), "left bounds") {
		t.Errorf("error = %v, want left bounds length error", err)
	}

	err = d.RequestPresent([]LayerInit{{
		Source:      newFakeSurface(),
		RightBounds: []float32{0, 0, 1, 1, 0},
	}})
	if err == nil || !strings.Contains(err.Error(), "right bounds") {
		t.Errorf("error = %v, want right bounds length error", err)
	}

	if err := d.RequestPresent([]LayerInit{{}}); !errors.Is(err, ErrInvalidLayerSource) {
		t.Errorf("nil source: error = %v, want ErrInvalidLayerSource", err)
	}

	if calls.Load() != 0 {
		t.Errorf("device saw %d requests, want 0", calls.Load())
	}
	if d.Presenting() {
		t.Error("session presenting after rejected layers")
	}
}

func TestRequestPresentStartsFrameLoop(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)

	if !d.Presenting() {
		t.Error("session not presenting after grant")
	}
	sync := syncPoses(t, surface)
	if sync.Session != 7 {
		t.Errorf("SyncPoses session = %d, want 7", sync.Session)
	}
	finishLoop(t, d, sync)
}

func TestRequestPresentDeniedByDevice(t *testing.T) {
	t.Parallel()

	denied := errors.New("display 1 is already presenting")
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		if q, ok := req.(devices.RequestPresent); ok {
			q.Reply <- devices.Fail[uint32](denied)
		}
	})

	surface := newFakeSurface()
	err := d.RequestPresent([]LayerInit{{Source: surface}})
	if !errors.Is(err, denied) {
		t.Errorf("error = %v, want wrapped %v", err, denied)
	}
	if d.Presenting() {
		t.Error("session presenting after device denial")
	}
	surface.requireNoCommand(t)
}

func TestRepeatRequestPresentUpdatesLayer(t *testing.T) {
	t.Parallel()

	var presents atomic.Int32
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		if _, ok := req.(devices.RequestPresent); ok {
			presents.Add(1)
		}
		grantAll(7)(req)
	})
	surface := present(t, d)
	sync := syncPoses(t, surface)

	// Second call while presenting: layer update, no device traffic.
	err := d.RequestPresent([]LayerInit{{
		Source:      surface,
		LeftBounds:  []float32{0, 0, 0.25, 1},
		RightBounds: []float32{0.25, 0, 0.25, 1},
	}})
	if err != nil {
		t.Fatalf("repeat RequestPresent failed: %v", err)
	}
	if got := presents.Load(); got != 1 {
		t.Errorf("device saw %d present requests, want 1", got)
	}

	d.SubmitFrame()
	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "SubmitFrame command")
	submit, ok := cmd.(compositor.SubmitFrame)
	if !ok {
		t.Fatalf("compositor command = %T, want SubmitFrame", cmd)
	}
	if submit.LeftBounds != [4]float32{0, 0, 0.25, 1} {
		t.Errorf("left bounds = %v, want updated bounds", submit.LeftBounds)
	}
	finishLoop(t, d, sync)
}

func TestRequestPresentKeepsLayerOninvalidUpdate(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	err := d.RequestPresent([]LayerInit{{
		Source:     surface,
		LeftBounds: []float32{1, 2, 3},
	}})
	if err == nil {
		t.Fatal("invalid layer update succeeded")
	}

	// The stored layer still carries the defaults.
	d.SubmitFrame()
	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "SubmitFrame command")
	submit := cmd.(compositor.SubmitFrame)
	if submit.LeftBounds != [4]float32{0, 0, 0.5, 1} {
		t.Errorf("left bounds = %v, want default half-surface", submit.LeftBounds)
	}
	if submit.RightBounds != [4]float32{0.5, 0, 0.5, 1} {
		t.Errorf("right bounds = %v, want default half-surface", submit.RightBounds)
	}
	finishLoop(t, d, sync)
}

func TestSubmitFrameIdleIsNoOp(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	d.SubmitFrame()
	// Nothing to assert beyond "no panic": an idle session has no
	// compositor channel to observe.
	if d.Presenting() {
		t.Error("SubmitFrame changed presenting state")
	}
}

func TestSubmitFrameSendsSessionAndBounds(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(9))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	d.SubmitFrame()
	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "SubmitFrame command")
	submit, ok := cmd.(compositor.SubmitFrame)
	if !ok {
		t.Fatalf("compositor command = %T, want SubmitFrame", cmd)
	}
	if submit.Session != 9 {
		t.Errorf("session = %d, want 9", submit.Session)
	}
	finishLoop(t, d, sync)
}

func TestExitPresentWhenIdle(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	if err := d.ExitPresent(); !errors.Is(err, ErrNotPresenting) {
		t.Errorf("error = %v, want ErrNotPresenting", err)
	}
}

func TestExitPresentReleasesSession(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	if err := d.ExitPresent(); err != nil {
		t.Fatalf("ExitPresent failed: %v", err)
	}
	if d.Presenting() {
		t.Error("session still presenting after ExitPresent")
	}

	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "Release command")
	release, ok := cmd.(compositor.Release)
	if !ok {
		t.Fatalf("compositor command = %T, want Release", cmd)
	}
	if release.Session != 7 {
		t.Errorf("released session = %d, want 7", release.Session)
	}

	// The loop exits via its in-flight sync failing, one amortized
	// extra round-trip after the exit.
	finishLoop(t, d, sync)
}

func TestFrameLoopDispatchCadence(t *testing.T) {
	t.Parallel()

	d, deps := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	var (
		order []string
		stamp []float64
	)
	h1 := d.RequestAnimationFrame(func(now float64) {
		order = append(order, "first")
		stamp = append(stamp, now)
	})
	h2 := d.RequestAnimationFrame(func(now float64) {
		order = append(order, "second")
		stamp = append(stamp, now)
	})
	if h1 != 1 || h2 != 2 {
		t.Errorf("handles = %d, %d, want 1, 2", h1, h2)
	}

	deps.clock.Advance(250 * time.Millisecond)
	sync.Reply <- nil

	// The loop posts the dispatch and blocks: no new sync may arrive
	// before the batch drains.
	task := deps.scheduler.nextTask(t)
	surface.requireNoCommand(t)
	task()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("dispatch order = %v, want [first second]", order)
	}
	if stamp[0] != stamp[1] {
		t.Errorf("timestamps differ within one batch: %v vs %v", stamp[0], stamp[1])
	}
	if stamp[0] != 250.0 {
		t.Errorf("timestamp = %v, want 250.0 ms since construction", stamp[0])
	}

	// Only after the dispatch does the loop sync again.
	next := syncPoses(t, surface)
	finishLoop(t, d, next)
}

func TestCallbackRegisteredDuringDispatchDefers(t *testing.T) {
	t.Parallel()

	d, deps := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	var batches [][]string
	record := func(name string) {
		batches[len(batches)-1] = append(batches[len(batches)-1], name)
	}
	d.RequestAnimationFrame(func(now float64) {
		record("outer")
		d.RequestAnimationFrame(func(now float64) {
			record("inner")
		})
	})

	batches = append(batches, nil)
	sync.Reply <- nil
	deps.scheduler.runOne(t)
	if len(batches[0]) != 1 || batches[0][0] != "outer" {
		t.Fatalf("first batch = %v, want [outer]", batches[0])
	}

	batches = append(batches, nil)
	sync = syncPoses(t, surface)
	sync.Reply <- nil
	deps.scheduler.runOne(t)
	if len(batches[1]) != 1 || batches[1][0] != "inner" {
		t.Fatalf("second batch = %v, want [inner]", batches[1])
	}

	finishLoop(t, d, syncPoses(t, surface))
}

func TestCancelAnimationFrame(t *testing.T) {
	t.Parallel()

	d, deps := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	var ran []uint32
	h1 := d.RequestAnimationFrame(func(now float64) { ran = append(ran, 1) })
	d.RequestAnimationFrame(func(now float64) { ran = append(ran, 2) })
	d.CancelAnimationFrame(h1)

	sync.Reply <- nil
	deps.scheduler.runOne(t)

	if len(ran) != 1 || ran[0] != 2 {
		t.Errorf("ran = %v, want only the uncancelled callback", ran)
	}

	// Cancelling after the batch drained is a no-op.
	d.CancelAnimationFrame(h1)

	finishLoop(t, d, syncPoses(t, surface))
}

func TestCallbackPanicDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	d, deps := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	var survived bool
	d.RequestAnimationFrame(func(now float64) { panic("callback exploded") })
	d.RequestAnimationFrame(func(now float64) { survived = true })

	sync.Reply <- nil
	deps.scheduler.runOne(t)

	if !survived {
		t.Error("panicking callback aborted the rest of the batch")
	}
	finishLoop(t, d, syncPoses(t, surface))
}

func TestFrameLoopStopsWhenSchedulerCloses(t *testing.T) {
	t.Parallel()

	d, deps := newTestDisplay(t, presentableData(1), grantAll(7))
	surface := present(t, d)
	sync := syncPoses(t, surface)

	deps.scheduler.close()
	sync.Reply <- nil

	testutil.RequireClosed(t, d.FrameLoopDone(), testTimeout, "frame loop exit after scheduler close")
}

func TestGetFrameDataKeepsCacheOnFailure(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		q, ok := req.(devices.GetFrameData)
		if !ok {
			return
		}
		if fail.Load() {
			q.Reply <- devices.Fail[vr.FrameData](errors.New("device unplugged"))
			return
		}
		frame := vr.NewFrameData()
		frame.Timestamp = 42
		q.Reply <- devices.Ok(frame)
	})

	var frame vr.FrameData
	if !d.GetFrameData(&frame) {
		t.Error("GetFrameData returned false")
	}
	if frame.Timestamp != 42 {
		t.Fatalf("timestamp = %d, want 42", frame.Timestamp)
	}

	// A failing refresh serves the prior snapshot and still succeeds.
	fail.Store(true)
	frame = vr.FrameData{}
	if !d.GetFrameData(&frame) {
		t.Error("GetFrameData returned false on device failure")
	}
	if frame.Timestamp != 42 {
		t.Errorf("timestamp after failure = %d, want cached 42", frame.Timestamp)
	}
}

func TestGetFrameDataServiceStopped(t *testing.T) {
	t.Parallel()

	scheduler := newManualScheduler()
	requests := make(chan devices.Request, 1)
	done := make(chan struct{})
	close(done)

	d, err := New(Config{
		Data:       presentableData(1),
		Client:     devices.NewClientID(),
		Requests:   requests,
		RouterDone: done,
		Scheduler:  scheduler,
		Clock:      clock.Fake(time.Unix(0, 0)),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var frame vr.FrameData
	if !d.GetFrameData(&frame) {
		t.Error("GetFrameData returned false with a stopped service")
	}
	if frame.LeftProjectionMatrix != vr.IdentityMatrix() {
		t.Error("stopped service did not serve the cached snapshot")
	}
}

func TestPoseServesCachedPose(t *testing.T) {
	t.Parallel()

	orientation := &[4]float32{0, 0.7071, 0, 0.7071}
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		if q, ok := req.(devices.GetFrameData); ok {
			frame := vr.NewFrameData()
			frame.Pose.Orientation = orientation
			q.Reply <- devices.Ok(frame)
		}
	})

	if got := d.Pose(); got.Orientation != nil {
		t.Errorf("initial pose orientation = %v, want nil", got.Orientation)
	}

	var frame vr.FrameData
	d.GetFrameData(&frame)

	pose := d.Pose()
	if pose.Orientation == nil || *pose.Orientation != *orientation {
		t.Errorf("pose orientation = %v, want %v", pose.Orientation, orientation)
	}
	// The returned pose is a clone: mutating it must not touch the
	// cache.
	pose.Orientation[0] = 99
	if again := d.Pose(); again.Orientation[0] == 99 {
		t.Error("Pose returned a live reference into the cache")
	}
}

func TestResetPoseFireAndForget(t *testing.T) {
	t.Parallel()

	received := make(chan devices.ResetPose, 1)
	d, _ := newTestDisplay(t, presentableData(1), func(req devices.Request) {
		if q, ok := req.(devices.ResetPose); ok {
			received <- q
		}
	})

	d.ResetPose()
	q := testutil.RequireReceive(t, received, testTimeout, "ResetPose request")
	if q.Reply != nil {
		t.Error("fire-and-forget ResetPose carried a reply channel")
	}
	if q.Display != 1 {
		t.Errorf("display = %d, want 1", q.Display)
	}
}

func TestSetDepthRejectsNonFinite(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))

	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := d.SetDepthNear(value); err == nil {
			t.Errorf("SetDepthNear(%v) accepted a non-finite value", value)
		}
		if err := d.SetDepthFar(value); err == nil {
			t.Errorf("SetDepthFar(%v) accepted a non-finite value", value)
		}
	}
	if got := d.DepthNear(); got != 0.01 {
		t.Errorf("DepthNear after rejections = %v, want 0.01", got)
	}

	if err := d.SetDepthNear(0.5); err != nil {
		t.Errorf("SetDepthNear(0.5) failed: %v", err)
	}
	if err := d.SetDepthFar(750); err != nil {
		t.Errorf("SetDepthFar(750) failed: %v", err)
	}

	// The stored range rides along on the next frame-data request.
	seen := make(chan devices.GetFrameData, 1)
	requests, done := startRouter(t, func(req devices.Request) {
		if q, ok := req.(devices.GetFrameData); ok {
			seen <- q
			q.Reply <- devices.Ok(vr.NewFrameData())
		}
	})
	d2, err := New(Config{
		Data:       presentableData(2),
		Client:     devices.NewClientID(),
		Requests:   requests,
		RouterDone: done,
		Scheduler:  newManualScheduler(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d2.SetDepthNear(0.25); err != nil {
		t.Fatalf("SetDepthNear failed: %v", err)
	}
	if err := d2.SetDepthFar(80); err != nil {
		t.Fatalf("SetDepthFar failed: %v", err)
	}
	var frame vr.FrameData
	d2.GetFrameData(&frame)
	q := testutil.RequireReceive(t, seen, testTimeout, "GetFrameData request")
	if q.DepthNear != 0.25 || q.DepthFar != 80 {
		t.Errorf("request depth range = (%v, %v), want (0.25, 80)", q.DepthNear, q.DepthFar)
	}
}

func TestHandleEventNotification(t *testing.T) {
	t.Parallel()

	var notified []vr.DisplayEvent
	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	d.notify = func(event vr.DisplayEvent) { notified = append(notified, event) }

	updated := presentableData(1)
	updated.DisplayName = "Renamed HMD"

	// Connect and Change update silently.
	d.HandleEvent(vr.Connect{Display: updated})
	if d.Name() != "Renamed HMD" {
		t.Errorf("name after Connect = %q, want %q", d.Name(), "Renamed HMD")
	}
	d.HandleEvent(vr.Change{Display: presentableData(1)})
	if len(notified) != 0 {
		t.Fatalf("silent events notified the surface: %v", notified)
	}

	// Blur and Focus notify.
	d.HandleEvent(vr.Blur{Display: updated})
	d.HandleEvent(vr.Focus{Display: updated})
	if len(notified) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notified))
	}
	if _, ok := notified[0].(vr.Blur); !ok {
		t.Errorf("first notification = %T, want vr.Blur", notified[0])
	}

	// Disconnect only drops the connected flag.
	d.HandleEvent(vr.Disconnect{ID: 1})
	if d.Connected() {
		t.Error("still connected after Disconnect event")
	}
	if d.Name() != "Renamed HMD" {
		t.Error("Disconnect event rewrote the descriptor")
	}
}

func TestPresentChangeStopsPresentation(t *testing.T) {
	t.Parallel()

	var notified []vr.DisplayEvent
	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	d.notify = func(event vr.DisplayEvent) { notified = append(notified, event) }

	surface := present(t, d)
	sync := syncPoses(t, surface)

	d.HandleEvent(vr.PresentChange{Display: presentableData(1), Presenting: false})
	if d.Presenting() {
		t.Error("session still presenting after device PresentChange")
	}
	if len(notified) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notified))
	}

	cmd := testutil.RequireReceive(t, surface.commands, testTimeout, "Release command")
	if _, ok := cmd.(compositor.Release); !ok {
		t.Errorf("compositor command = %T, want Release", cmd)
	}
	finishLoop(t, d, sync)
}

func TestPresentChangeWhileIdle(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	// The device claims presenting but this session never requested
	// it; the session stays idle (it has no compositor session).
	d.HandleEvent(vr.PresentChange{Display: presentableData(1), Presenting: true})
	if d.Presenting() {
		t.Error("session invented a presentation from an event")
	}
}

func TestAnimationFrameIdleDelegation(t *testing.T) {
	t.Parallel()

	frames := &recordingFrames{}
	requests, done := startRouter(t, grantAll(7))
	d, err := New(Config{
		Data:       presentableData(1),
		Client:     devices.NewClientID(),
		Requests:   requests,
		RouterDone: done,
		Scheduler:  newManualScheduler(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		IdleFrames: frames,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	handle := d.RequestAnimationFrame(func(now float64) {})
	if handle != 1 || len(frames.requested) != 1 {
		t.Errorf("idle request not delegated: handle=%d requested=%v", handle, frames.requested)
	}
	d.CancelAnimationFrame(handle)
	if len(frames.cancelled) != 1 || frames.cancelled[0] != handle {
		t.Errorf("idle cancel not delegated: %v", frames.cancelled)
	}
}

func TestAnimationFrameIdleWithoutScheduler(t *testing.T) {
	t.Parallel()

	d, _ := newTestDisplay(t, presentableData(1), grantAll(7))
	if handle := d.RequestAnimationFrame(func(now float64) {}); handle != 0 {
		t.Errorf("handle = %d, want 0 when idle with no scheduler", handle)
	}
	// Cancel with no idle scheduler must not panic.
	d.CancelAnimationFrame(1)
}

func TestEyeParameters(t *testing.T) {
	t.Parallel()

	data := presentableData(1)
	data.LeftEyeParameters.RenderWidth = 800
	data.RightEyeParameters.RenderWidth = 820
	d, _ := newTestDisplay(t, data, grantAll(7))

	if got := d.EyeParameters(vr.EyeLeft).RenderWidth; got != 800 {
		t.Errorf("left eye width = %d, want 800", got)
	}
	if got := d.EyeParameters(vr.EyeRight).RenderWidth; got != 820 {
		t.Errorf("right eye width = %d, want 820", got)
	}
}

func TestStageParametersCopied(t *testing.T) {
	t.Parallel()

	data := presentableData(1)
	data.StageParameters = &vr.StageParameters{SizeX: 2, SizeZ: 3}
	d, _ := newTestDisplay(t, data, grantAll(7))

	stage := d.StageParameters()
	if stage == nil || stage.SizeX != 2 {
		t.Fatalf("stage = %+v, want SizeX 2", stage)
	}
	stage.SizeX = 100
	if d.StageParameters().SizeX != 2 {
		t.Error("StageParameters returned a live reference")
	}

	bare := presentableData(2)
	d2, _ := newTestDisplay(t, bare, grantAll(7))
	if d2.StageParameters() != nil {
		t.Error("display without stage returned parameters")
	}
}
