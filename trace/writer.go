// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"io"

	"github.com/WhiteSymmetry/servo/lib/codec"
	"github.com/WhiteSymmetry/servo/vr"
)

// Writer writes a trace stream. Not safe for concurrent use; the
// Recorder serializes all writes on its own goroutine.
type Writer struct {
	w           *countingWriter
	compression CompressionTag
}

// NewWriter writes the stream header and returns a Writer that
// compresses chunk bodies with the given tag. Chunks that do not
// shrink under it are stored uncompressed.
func NewWriter(w io.Writer, compression CompressionTag) (*Writer, error) {
	switch compression {
	case CompressionNone, CompressionLZ4, CompressionZstd:
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", compression)
	}
	counting := &countingWriter{w: w}
	if _, err := counting.Write(append([]byte(magic), formatVersion)); err != nil {
		return nil, fmt.Errorf("writing trace header: %w", err)
	}
	return &Writer{w: counting, compression: compression}, nil
}

// WriteDescriptors writes a descriptor chunk with the displays present
// at capture time.
func (w *Writer) WriteDescriptors(displays []vr.DisplayData) error {
	body, err := codec.Marshal(displays)
	if err != nil {
		return fmt.Errorf("encoding display descriptors: %w", err)
	}
	return writeChunk(w.w, chunkTypeDescriptors, body, w.compression)
}

// WriteSamples writes one sample chunk. Empty batches are skipped.
func (w *Writer) WriteSamples(samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	body, err := codec.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encoding samples: %w", err)
	}
	return writeChunk(w.w, chunkTypeSamples, body, w.compression)
}

// BytesWritten returns the total stream size so far, header included.
func (w *Writer) BytesWritten() uint64 {
	return w.w.count
}

type countingWriter struct {
	w     io.Writer
	count uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += uint64(n)
	return n, err
}
