// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/WhiteSymmetry/servo/vr"
)

// magic opens every trace stream, immediately followed by the format
// version byte.
const magic = "SVRTRACE"

// formatVersion is the current stream format. Readers reject streams
// with a version they do not understand.
const formatVersion byte = 0x01

// Chunk type constants. These values are format constants — changing
// them breaks existing traces.
const (
	// chunkTypeDescriptors carries the CBOR-encoded display
	// descriptors captured when recording started.
	chunkTypeDescriptors byte = 0x01

	// chunkTypeSamples carries a CBOR-encoded batch of Samples.
	chunkTypeSamples byte = 0x02
)

// chunkHeaderLength is the fixed frame header: 1 byte type + 4 bytes
// big-endian payload length.
const chunkHeaderLength = 5

// maxChunkLength bounds a single chunk payload. Sample batches are
// flushed long before this; the cap guards readers against corrupt
// length fields.
const maxChunkLength = 16 * 1024 * 1024

// payloadHeaderLength is the fixed prefix inside a chunk payload:
// 1 byte compression tag + 4 bytes big-endian uncompressed size +
// 32 bytes digest.
const payloadHeaderLength = 1 + 4 + digestLength

// Sample is one captured frame: which display served it, when it was
// captured, and the full frame data.
type Sample struct {
	Display    uint32       `cbor:"display"`
	CapturedAt int64        `cbor:"captured_at"` // Unix milliseconds
	Frame      vr.FrameData `cbor:"frame"`
}

// CompressionTag identifies the compression applied to a chunk body.
// Stored as 1 byte in the payload header; the values are format
// constants.
type CompressionTag uint8

const (
	CompressionNone CompressionTag = 0
	CompressionLZ4  CompressionTag = 1
	CompressionZstd CompressionTag = 2
)

// String returns the tag's configuration name.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a tag from its configuration name.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// digestLength is the size of a chunk digest.
const digestLength = 32

// Digest is the keyed BLAKE3 digest of a chunk's uncompressed body.
// Computed before compression so verification is independent of the
// compression tag.
type Digest [digestLength]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// chunkDomainKey is the BLAKE3 key for chunk digests. The bytes are
// the ASCII domain name zero-padded to 32, keeping the key readable in
// hex dumps. Changing it invalidates every existing trace.
var chunkDomainKey = [32]byte{
	's', 'e', 'r', 'v', 'o', '.', 't', 'r', 'a', 'c', 'e', '.',
	'c', 'h', 'u', 'n', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func digestChunk(data []byte) Digest {
	hasher, err := blake3.NewKeyed(chunkDomainKey[:])
	if err != nil {
		// NewKeyed fails only on wrong key length, which the fixed
		// array rules out.
		panic("trace: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// DigestMismatchError reports a chunk whose body does not match its
// recorded digest.
type DigestMismatchError struct {
	Want Digest
	Got  Digest
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("chunk digest mismatch: recorded %s, computed %s", e.Want, e.Got)
}

// IsDigestMismatch reports whether err is a DigestMismatchError.
func IsDigestMismatch(err error) bool {
	var mismatchErr *DigestMismatchError
	return errors.As(err, &mismatchErr)
}

// errIncompressible signals that compressed output would not be
// smaller than the input; the writer falls back to CompressionNone for
// that chunk.
var errIncompressible = errors.New("data is incompressible")

// zstd encoder/decoder are reused across chunks; both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("trace: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("trace: zstd decoder initialization failed: " + err.Error())
	}
}

func compressBody(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil

	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input; output at
		// least as large as the input is not worth storing either.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func decompressBody(compressed []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(compressed) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed chunk: size %d does not match recorded %d",
				len(compressed), uncompressedSize)
		}
		return compressed, nil

	case CompressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// writeChunk frames one chunk: compresses the body (falling back to
// CompressionNone when compression does not pay), digests the
// uncompressed bytes, and writes header plus payload.
func writeChunk(w io.Writer, chunkType byte, body []byte, tag CompressionTag) error {
	compressed, err := compressBody(body, tag)
	if errors.Is(err, errIncompressible) {
		tag = CompressionNone
		compressed = body
	} else if err != nil {
		return err
	}

	digest := digestChunk(body)
	payload := make([]byte, payloadHeaderLength+len(compressed))
	payload[0] = byte(tag)
	binary.BigEndian.PutUint32(payload[1:5], uint32(len(body)))
	copy(payload[5:5+digestLength], digest[:])
	copy(payload[payloadHeaderLength:], compressed)

	var header [chunkHeaderLength]byte
	header[0] = chunkType
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing chunk header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing chunk payload: %w", err)
	}
	return nil
}

// readChunk reads one framed chunk and returns its type and verified,
// decompressed body. Returns io.EOF cleanly at end of stream.
func readChunk(r io.Reader) (byte, []byte, error) {
	var header [chunkHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("reading chunk header: %w", err)
	}
	chunkType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > maxChunkLength {
		return 0, nil, fmt.Errorf("chunk payload length %d exceeds maximum %d", payloadLength, maxChunkLength)
	}
	if payloadLength < payloadHeaderLength {
		return 0, nil, fmt.Errorf("chunk payload length %d below header size %d", payloadLength, payloadHeaderLength)
	}

	payload := make([]byte, payloadLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading chunk payload: %w", err)
	}

	tag := CompressionTag(payload[0])
	uncompressedSize := binary.BigEndian.Uint32(payload[1:5])
	if uncompressedSize > maxChunkLength {
		return 0, nil, fmt.Errorf("chunk uncompressed size %d exceeds maximum %d", uncompressedSize, maxChunkLength)
	}
	var want Digest
	copy(want[:], payload[5:5+digestLength])

	body, err := decompressBody(payload[payloadHeaderLength:], tag, int(uncompressedSize))
	if err != nil {
		return 0, nil, err
	}
	if got := digestChunk(body); got != want {
		return 0, nil, &DigestMismatchError{Want: want, Got: got}
	}
	return chunkType, body, nil
}
