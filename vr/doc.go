// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package vr defines the value types shared between device drivers, the
// device service, and display sessions: display descriptors, frame data,
// poses, layers, and the asynchronous display event union.
//
// All types are plain owned values. Snapshots cross goroutine boundaries
// by copy, never by shared reference; types with pointer-typed optional
// fields (Pose, FrameData, DisplayData) provide Clone for a deep copy.
//
// The package also defines the driver SPI ([Driver], [Device]) that the
// device service uses to talk to concrete hardware backends. Drivers are
// owned by the device service goroutine and are never called
// concurrently.
package vr
