// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"errors"
	"fmt"
)

// ErrServiceStopped is the reply error for requests drained during
// shutdown, and the call error for sessions that find the service gone.
var ErrServiceStopped = errors.New("device service stopped")

// UnknownDisplayError reports a request that named a display the
// service has never seen.
type UnknownDisplayError struct {
	Display uint32
}

func (e *UnknownDisplayError) Error() string {
	return fmt.Sprintf("unknown display %d", e.Display)
}

// IsUnknownDisplay reports whether err wraps an UnknownDisplayError.
func IsUnknownDisplay(err error) bool {
	var unknown *UnknownDisplayError
	return errors.As(err, &unknown)
}

// PresentationClaimError reports a present or exit-present request
// that conflicts with the display's current claim.
type PresentationClaimError struct {
	Display uint32
	// Claimed is true when the display is already presenting for
	// another client, false when an exit was requested with no claim
	// held by the requester.
	Claimed bool
}

func (e *PresentationClaimError) Error() string {
	if e.Claimed {
		return fmt.Sprintf("display %d is already presenting", e.Display)
	}
	return fmt.Sprintf("display %d is not presenting for this client", e.Display)
}

// IsPresentationClaim reports whether err wraps a
// PresentationClaimError.
func IsPresentationClaim(err error) bool {
	var claim *PresentationClaimError
	return errors.As(err, &claim)
}
