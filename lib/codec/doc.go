// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Servo's standard CBOR encoding configuration.
//
// Servo uses two serialization formats with a clear boundary:
//
//   - JSON for human-facing surfaces: mock display profiles (JSONC on
//     disk), CLI --json output, and configuration files.
//   - CBOR for internal protocols: the daemon's service socket, trace
//     stream chunk payloads (display descriptors and frame samples),
//     and on-disk daemon state.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Servo package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations (trace chunks, state files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON or interact with CLI tooling.
//     Examples: trace chunk payloads, socket protocol envelopes.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: display snapshots
//     that ride the socket as CBOR and render as CLI --json output,
//     types shared between profile files (JSON) and the socket
//     protocol (CBOR).
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract. Doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
