// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/WhiteSymmetry/servo/lib/codec"
	"github.com/WhiteSymmetry/servo/vr"
)

// Chunk is one decoded trace chunk. Exactly one field is set,
// according to the chunk's type.
type Chunk struct {
	Descriptors []vr.DisplayData
	Samples     []Sample
}

// Reader reads a trace stream chunk by chunk.
type Reader struct {
	r io.Reader
}

// NewReader validates the stream header and returns a Reader
// positioned at the first chunk.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], []byte(magic)) {
		return nil, fmt.Errorf("not a trace stream: bad magic %q", header[:len(magic)])
	}
	if version := header[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("unsupported trace version %d (reader supports %d)", version, formatVersion)
	}
	return &Reader{r: r}, nil
}

// Next returns the next known chunk, verified and decoded. Chunk types
// this reader does not know are skipped. Returns io.EOF at the end of
// the stream.
func (r *Reader) Next() (*Chunk, error) {
	for {
		chunkType, body, err := readChunk(r.r)
		if err != nil {
			return nil, err
		}
		switch chunkType {
		case chunkTypeDescriptors:
			var displays []vr.DisplayData
			if err := codec.Unmarshal(body, &displays); err != nil {
				return nil, fmt.Errorf("decoding display descriptors: %w", err)
			}
			return &Chunk{Descriptors: displays}, nil
		case chunkTypeSamples:
			var samples []Sample
			if err := codec.Unmarshal(body, &samples); err != nil {
				return nil, fmt.Errorf("decoding samples: %w", err)
			}
			return &Chunk{Samples: samples}, nil
		default:
			// Unknown chunk types are newer extensions; skip.
		}
	}
}

// Recording is a fully loaded trace.
type Recording struct {
	Descriptors []vr.DisplayData
	Samples     []Sample
}

// ReadAll loads an entire trace stream.
func ReadAll(r io.Reader) (*Recording, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	recording := &Recording{}
	for {
		chunk, err := reader.Next()
		if err == io.EOF {
			return recording, nil
		}
		if err != nil {
			return nil, err
		}
		if chunk.Descriptors != nil {
			recording.Descriptors = append(recording.Descriptors, chunk.Descriptors...)
		}
		recording.Samples = append(recording.Samples, chunk.Samples...)
	}
}

// ReadFile loads a trace from disk.
func ReadFile(path string) (*Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer file.Close()
	recording, err := ReadAll(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}
	return recording, nil
}
