// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WhiteSymmetry/servo/trace"
	"github.com/WhiteSymmetry/servo/vr"
)

func recordedFrame(counter uint64) vr.FrameData {
	frame := vr.NewFrameData()
	frame.Timestamp = 1000 + counter
	frame.LeftViewMatrix[12] = float32(counter) * -0.5
	orientation := [4]float32{0, float32(counter) * 0.1, 0, 1}
	frame.Pose.Orientation = &orientation
	return frame
}

func testRecording() *trace.Recording {
	recording := &trace.Recording{
		Descriptors: []vr.DisplayData{{
			DisplayID:   4,
			DisplayName: "Captured HMD",
			Connected:   false,
			Capabilities: vr.Capabilities{
				HasOrientation: true,
				CanPresent:     true,
			},
		}},
	}
	for counter := uint64(0); counter < 3; counter++ {
		recording.Samples = append(recording.Samples, trace.Sample{
			Display:    4,
			CapturedAt: int64(counter) * 16,
			Frame:      recordedFrame(counter),
		})
	}
	return recording
}

func testDriver(t *testing.T) *Driver {
	t.Helper()
	driver, err := New(testRecording())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return driver
}

func TestNewRequiresDescriptors(t *testing.T) {
	t.Parallel()
	if _, err := New(&trace.Recording{}); err == nil {
		t.Error("New should fail on a recording without descriptors")
	}
	if _, err := New(nil); err == nil {
		t.Error("New should fail on a nil recording")
	}
}

func TestDisplaysKeepRecordedDescriptors(t *testing.T) {
	t.Parallel()
	driver := testDriver(t)
	if got := driver.Name(); got != "replay" {
		t.Errorf("Name() = %q, want \"replay\"", got)
	}

	displays := driver.Displays()
	if len(displays) != 1 {
		t.Fatalf("got %d displays, want 1", len(displays))
	}
	data := displays[0].Data()
	if data.DisplayID != 4 || data.DisplayName != "Captured HMD" {
		t.Errorf("descriptor = %+v, want recorded display 4", data)
	}
	if !data.Connected {
		t.Error("replayed display should report connected even if captured detached")
	}
}

func TestFrameDataServesRecordedSequence(t *testing.T) {
	t.Parallel()
	device := testDriver(t).Displays()[0]

	for counter := uint64(0); counter < 3; counter++ {
		frame, err := device.FrameData(0.1, 100)
		if err != nil {
			t.Fatalf("FrameData(%d) failed: %v", counter, err)
		}
		want := recordedFrame(counter)
		if frame.LeftViewMatrix != want.LeftViewMatrix {
			t.Errorf("frame %d view = %v, want recorded %v",
				counter, frame.LeftViewMatrix, want.LeftViewMatrix)
		}
		if frame.Pose.Orientation == nil || *frame.Pose.Orientation != *want.Pose.Orientation {
			t.Errorf("frame %d pose does not match the recording", counter)
		}
		if frame.Timestamp != counter+1 {
			t.Errorf("frame %d timestamp = %d, want monotonic %d",
				counter, frame.Timestamp, counter+1)
		}
	}
}

func TestFrameDataWrapsAtRecordingEnd(t *testing.T) {
	t.Parallel()
	device := testDriver(t).Displays()[0]

	for i := 0; i < 3; i++ {
		if _, err := device.FrameData(0.1, 100); err != nil {
			t.Fatalf("FrameData failed: %v", err)
		}
	}

	wrapped, err := device.FrameData(0.1, 100)
	if err != nil {
		t.Fatalf("FrameData after wrap failed: %v", err)
	}
	first := recordedFrame(0)
	if wrapped.LeftViewMatrix != first.LeftViewMatrix {
		t.Error("wrap should restart at the first recorded frame")
	}
	if wrapped.Timestamp != 4 {
		t.Errorf("wrapped timestamp = %d, want 4", wrapped.Timestamp)
	}
}

func TestFrameDataSnapshotsAreIndependent(t *testing.T) {
	t.Parallel()
	device := testDriver(t).Displays()[0]

	frame, err := device.FrameData(0.1, 100)
	if err != nil {
		t.Fatalf("FrameData failed: %v", err)
	}
	(*frame.Pose.Orientation)[1] = 99

	for i := 0; i < 2; i++ {
		if _, err := device.FrameData(0.1, 100); err != nil {
			t.Fatalf("FrameData failed: %v", err)
		}
	}
	// Back at the first recorded frame; the earlier mutation must not
	// have leaked into the recording.
	replayed, err := device.FrameData(0.1, 100)
	if err != nil {
		t.Fatalf("FrameData failed: %v", err)
	}
	if (*replayed.Pose.Orientation)[1] == 99 {
		t.Error("mutating a served frame corrupted the recording")
	}
}

func TestFrameDataWithoutSamples(t *testing.T) {
	t.Parallel()
	recording := &trace.Recording{
		Descriptors: []vr.DisplayData{{DisplayID: 9, DisplayName: "Silent"}},
	}
	driver, err := New(recording)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = driver.Displays()[0].FrameData(0.1, 100)
	if err == nil || !strings.Contains(err.Error(), "no recorded frames") {
		t.Errorf("FrameData = %v, want no-recorded-frames error", err)
	}
}

func TestPresentClaims(t *testing.T) {
	t.Parallel()
	device := testDriver(t).Displays()[0]

	session, err := device.StartPresent()
	if err != nil {
		t.Fatalf("StartPresent failed: %v", err)
	}
	if session != 1 {
		t.Errorf("session = %d, want 1", session)
	}
	if _, err := device.StartPresent(); err == nil {
		t.Error("second StartPresent should fail")
	}
	if err := device.StopPresent(); err != nil {
		t.Fatalf("StopPresent failed: %v", err)
	}
	if err := device.StopPresent(); err == nil {
		t.Error("StopPresent on an idle device should fail")
	}
}

func TestResetPoseIsNoOp(t *testing.T) {
	t.Parallel()
	if err := testDriver(t).Displays()[0].ResetPose(); err != nil {
		t.Errorf("ResetPose failed: %v", err)
	}
}

func TestOpenLoadsTraceFile(t *testing.T) {
	t.Parallel()
	recording := testRecording()
	var buf bytes.Buffer
	writer, err := trace.NewWriter(&buf, trace.CompressionZstd)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteDescriptors(recording.Descriptors); err != nil {
		t.Fatalf("WriteDescriptors failed: %v", err)
	}
	if err := writer.WriteSamples(recording.Samples); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "capture.trace")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing trace: %v", err)
	}

	driver, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	frame, err := driver.Displays()[0].FrameData(0.1, 100)
	if err != nil {
		t.Fatalf("FrameData failed: %v", err)
	}
	if frame.LeftViewMatrix != recordedFrame(0).LeftViewMatrix {
		t.Error("frame served from file does not match the recording")
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Open(filepath.Join(t.TempDir(), "absent.trace")); err == nil {
		t.Error("Open should fail for a missing file")
	}
}
