// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package mockvr implements a simulated VR display driver. Devices are
// described by profiles authored as JSONC fixtures (JSON with comments
// and trailing commas) or built from DefaultProfile. Each device
// synthesizes a deterministic head pose (a slow yaw rotation advanced
// by one step per served frame) and derives projection matrices from
// the profile's field of view and the caller's depth range, so frame
// requests produce stable, inspectable values without hardware.
//
// A profile file declares one or more displays:
//
//	{
//	  "displays": [
//	    {
//	      // Room-scale device with full tracking.
//	      "name": "Servo Mock HMD",
//	      "capabilities": {
//	        "has_orientation": true,
//	        "has_position": true,
//	        "can_present": true,
//	      },
//	      "stage": {"size_x": 2.0, "size_z": 1.5},
//	    },
//	  ],
//	}
//
// Eye parameters left empty inherit the package defaults (symmetric
// 45 degree frustum, 1512x1680 render targets, 60mm IPD).
//
// Drivers also expose failure injection (frame errors, present
// denials, disconnects) and direct event queueing so tests and demo
// setups can exercise session edge cases on demand.
package mockvr
