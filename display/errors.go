// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "errors"

// Presentation errors surfaced to the hosting surface. The message
// text is part of the client-facing contract and mirrors the WebVR
// wording for canPresent and presenting-state rejections.
var (
	// ErrCannotPresent rejects RequestPresent on a display whose
	// capabilities rule out presentation.
	ErrCannotPresent = errors.New("VRDisplay canPresent is false")

	// ErrLayerCount rejects RequestPresent calls that do not pass
	// exactly one layer.
	ErrLayerCount = errors.New("the number of layers must be 1")

	// ErrNotPresenting rejects ExitPresent on an idle session.
	ErrNotPresenting = errors.New("VRDisplay is not presenting")

	// ErrInvalidLayerSource rejects layers without a usable rendering
	// surface.
	ErrInvalidLayerSource = errors.New("layer source must be a rendering surface")
)
