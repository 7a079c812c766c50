// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix-socket control protocol shared by
// the servo-vr-service daemon and the servo-vr CLI.
//
// The protocol is CBOR request-response over a Unix socket with one
// request per connection: the client writes a single CBOR map
// containing an "action" field plus handler-specific fields, the
// server writes a single [Response] envelope, and the connection
// closes. CBOR values are self-delimiting, so no framing protocol is
// needed.
//
//   - [SocketServer]: action dispatch, connection timeouts, graceful
//     shutdown (in-flight handlers complete before Serve returns).
//   - [ServiceClient]: one [ServiceClient.Call] per request; server
//     failures surface as [*ServiceError], transport failures as
//     plain errors.
//
// Daemons compose these utilities in their own main() rather than
// subclassing a framework. The package provides building blocks, not
// a runtime.
//
// Access control is filesystem permissions on the socket path. The
// daemon serves no privileged mutations over this socket; actions
// report state (status, display lists, trace recorder progress).
package service
