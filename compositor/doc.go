// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package compositor defines the command boundary between presenting
// display sessions and the render side.
//
// A presenting session talks to its compositor through a channel of
// Command values owned by the render side. Create and Release bracket
// a presentation session; SyncPoses gates each frame and is the only
// command that replies. Release makes every later SyncPoses for that
// session fail, which is how a frame loop learns that its presentation
// has ended.
//
// Headless is the in-process implementation used by the daemon and by
// tests. It serves commands serially from a single goroutine and
// paces SyncPoses replies with an injected clock, so tests drive
// frames deterministically with a fake clock.
package compositor
