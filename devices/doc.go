// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package devices implements the device service: a single goroutine
// that owns every VR driver handle, serializes device requests from all
// display sessions, and fans out asynchronous display events to
// registered clients.
//
// Sessions talk to the service through the closed [Request] union.
// Requests that expect an answer carry a one-shot reply channel
// (buffered, capacity 1); the service sends exactly one [Result] on it,
// ever, including during shutdown, when queued requests are drained
// with an error reply. Drivers are invoked one request at a time, so
// driver implementations never see concurrent calls.
//
// Event fan-out decouples delivery from request processing: each
// registered client gets an ordered queue and a pump goroutine, so a
// slow event consumer delays only itself, never the service loop or
// other clients. Per-client delivery order always matches occurrence
// order on the device.
package devices
