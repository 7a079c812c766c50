// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package display implements the per-display presentation session that
// sits between a hosting surface and the device service.
//
// A Display is confined to a single control goroutine: every method,
// including HandleEvent and the frame-callback dispatch, must run
// there. The Display holds exactly one writer for all session state,
// so no locking is needed or present. TaskQueue is the scheduler that
// realizes this confinement: anything that needs to touch a Display
// from another goroutine posts a task instead.
//
// While presenting, a frame loop goroutine paces the session against
// the compositor: it performs a pose-sync handshake, posts one
// callback-dispatch task to the control goroutine, waits for that
// dispatch to finish, and repeats. The device never sees a new pose
// sync before the previous frame's callbacks have drained, so a slow
// callback batch slows the loop rather than piling up work. The loop
// exits when a pose sync fails, which is how both ExitPresent (via the
// compositor session release) and compositor shutdown stop it. There
// is no timeout on the pose-sync round-trip; a hung compositor holds
// the loop indefinitely.
//
// Tear-down order matters to the frame loop: release presentations
// (ExitPresent) while the compositor still serves commands, then stop
// the compositor, then the scheduler. The daemon follows this order.
package display
