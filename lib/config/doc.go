// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// servo-vr-service daemon.
//
// Configuration is loaded from a single file specified by either the
// SERVO_VR_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${XDG_RUNTIME_DIR:-/tmp}, and similar ${VAR:-default}
// patterns are expanded. No other environment variables override
// config values.
//
// Key exports:
//
//   - [Config] -- master struct with Socket, Pump, Compositor,
//     Drivers, Trace
//   - [Default] -- returns a Config with working development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// Durations are stored as Go duration strings ("500ms", "5s") and
// surfaced parsed through [Config.PollInterval],
// [Config.FrameInterval], and [Config.TraceFlushInterval]. [Config.Validate]
// checks every field, so a daemon that validates at startup can use
// the accessors without re-checking.
//
// This package depends on no other Servo packages.
package config
