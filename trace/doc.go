// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace reads and writes frame trace streams: recordings of
// the frame data a device service served, used for offline inspection
// and for replaying a captured session through the replay driver.
//
// A trace stream is a fixed header (magic plus format version)
// followed by framed chunks. Each chunk is a 1-byte type and a 4-byte
// big-endian length, then a payload holding a compression tag, the
// uncompressed size, a keyed BLAKE3 digest of the uncompressed bytes,
// and the (possibly compressed) CBOR body. Descriptor chunks carry the
// display descriptors present at capture time; sample chunks carry
// batches of captured frames. Chunks whose type the reader does not
// know are skipped, so the format can grow without breaking old
// readers.
//
// Recorder is the capture side: it observes frame-data replies without
// blocking the device service and writes sample chunks on a size
// threshold or timer, whichever comes first.
package trace
