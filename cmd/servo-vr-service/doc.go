// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Servo-vr-service is the standalone VR device daemon. It owns the
// device drivers, routes session requests to them through the device
// service, paces presentations with a headless compositor, and serves
// a small CBOR control API on a Unix socket.
//
// # Startup
//
// The daemon reads its YAML configuration from the path in the
// SERVO_VR_CONFIG environment variable (or --config). The configured
// drivers are built first (the mock driver with its optional display
// profiles, the replay driver from a recorded trace), then the device
// service, the headless compositor, and the event pump. When
// trace.output is set, a frame recorder is hooked in as the device
// service's frame observer before the service starts.
//
// # Control socket
//
// The socket serves one CBOR request per connection (the lib/service
// protocol): "status" reports uptime, client and display counts, and
// the presenting compositor sessions; "list-displays" returns display
// descriptor snapshots; "trace-status" returns recorder counters. The
// servo-vr CLI is the intended client.
//
// # Self presentation
//
// With --present-display the daemon hosts its own presenting session
// on the named display: it registers a client, claims the display,
// and drives the frame cycle (pose fetch, frame submit, next
// callback) on an in-process control goroutine. Combined with
// trace.output this captures a pose trace without any external
// client.
package main
