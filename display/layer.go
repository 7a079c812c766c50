// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"fmt"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/vr"
)

// Surface is the rendering surface a layer presents from. It exposes
// the command channel of the render side that owns the surface's
// textures; the session uses it for the whole presentation lifecycle.
type Surface interface {
	Compositor() chan<- compositor.Command
}

// LayerInit describes a layer passed to RequestPresent: the source
// surface plus optional per-eye texture bounds in [x, y, width,
// height] UV fractions. Empty bounds select the default half-surface
// split for that eye; any length other than 0 or 4 fails validation.
type LayerInit struct {
	Source      Surface
	LeftBounds  []float32
	RightBounds []float32
}

// layer is a validated LayerInit with both bounds resolved to their
// final four-component form. Only validated layers are ever stored on
// a session.
type layer struct {
	source      Surface
	leftBounds  [4]float32
	rightBounds [4]float32
}

func validateLayer(init LayerInit) (layer, error) {
	if init.Source == nil {
		return layer{}, ErrInvalidLayerSource
	}
	defaults := vr.DefaultLayer()
	left, err := parseBounds(init.LeftBounds, defaults.LeftBounds, "left")
	if err != nil {
		return layer{}, err
	}
	right, err := parseBounds(init.RightBounds, defaults.RightBounds, "right")
	if err != nil {
		return layer{}, err
	}
	return layer{source: init.Source, leftBounds: left, rightBounds: right}, nil
}

func parseBounds(values []float32, fallback [4]float32, side string) ([4]float32, error) {
	switch len(values) {
	case 0:
		return fallback, nil
	case 4:
		var bounds [4]float32
		copy(bounds[:], values)
		return bounds, nil
	default:
		return [4]float32{}, fmt.Errorf("the number of values in the %s bounds must be 0 or 4, got %d",
			side, len(values))
	}
}
