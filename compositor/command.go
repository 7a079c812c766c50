// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

// Command is the sealed set of messages a presenting session sends to
// the render side. Only SyncPoses replies; the rest are fire and
// forget.
type Command interface {
	isCommand()
}

// Create registers a presentation session. Sent exactly once per
// session, before its first SyncPoses.
type Create struct {
	Session uint32
}

// SyncPoses asks the compositor to hold the session until the display
// is ready for the next frame. Reply receives nil when the frame
// window opens, or an error when the session is unknown, released, or
// the compositor is shutting down. Reply must have capacity for the
// reply so shutdown never blocks on a departed caller.
type SyncPoses struct {
	Session uint32
	Reply   chan<- error
}

// SubmitFrame hands the rendered layer for a session to the
// compositor, with the texture bounds for each eye in [x, y, width,
// height] UV fractions.
type SubmitFrame struct {
	Session     uint32
	LeftBounds  [4]float32
	RightBounds [4]float32
}

// Release ends a session. Later SyncPoses for the session fail.
type Release struct {
	Session uint32
}

func (Create) isCommand()      {}
func (SyncPoses) isCommand()   {}
func (SubmitFrame) isCommand() {}
func (Release) isCommand()     {}
