// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WhiteSymmetry/servo/lib/clock"
	"github.com/WhiteSymmetry/servo/vr"
)

const (
	defaultFlushThreshold = 256
	defaultFlushInterval  = 5 * time.Second
)

// RecorderConfig configures a Recorder. Sink is required; the Recorder
// never closes it. Zero values select a 256-sample flush threshold, a
// 5s flush interval, the real clock, and the default logger.
type RecorderConfig struct {
	Sink        io.Writer
	Compression CompressionTag

	// Descriptors are written as the trace's first chunk. Usually the
	// device service's display snapshots at capture start.
	Descriptors []vr.DisplayData

	// FlushThreshold is the pending-sample count that triggers an
	// early chunk write; FlushInterval flushes whatever is pending.
	FlushThreshold int
	FlushInterval  time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// RecorderStats is a point-in-time snapshot of capture counters.
type RecorderStats struct {
	Samples uint64 `cbor:"samples"`
	Chunks  uint64 `cbor:"chunks"`
	Bytes   uint64 `cbor:"bytes"`
}

// Recorder captures frame-data replies into a trace stream. Observe is
// shaped to be a devices frame observer: it runs on the device service
// goroutine and only appends to a buffer, so recording never stalls
// frame serving. The Run goroutine owns the Writer and does all I/O.
type Recorder struct {
	writer    *Writer
	threshold int
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	pending []Sample
	closed  bool

	notify chan struct{}
	done   chan struct{}

	samples atomic.Uint64
	chunks  atomic.Uint64
	bytes   atomic.Uint64
}

// NewRecorder writes the stream header (and descriptor chunk, when
// given) and returns a Recorder ready for Run.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Sink == nil {
		return nil, errors.New("recorder sink is required")
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = defaultFlushThreshold
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	writer, err := NewWriter(cfg.Sink, cfg.Compression)
	if err != nil {
		return nil, err
	}
	recorder := &Recorder{
		writer:    writer,
		threshold: cfg.FlushThreshold,
		interval:  cfg.FlushInterval,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if len(cfg.Descriptors) > 0 {
		if err := writer.WriteDescriptors(cfg.Descriptors); err != nil {
			return nil, err
		}
		recorder.chunks.Add(1)
	}
	recorder.bytes.Store(writer.BytesWritten())
	return recorder, nil
}

// Observe buffers one served frame. Safe to call from the device
// service goroutine; never blocks on I/O. Frames observed after the
// Recorder stopped are dropped.
func (r *Recorder) Observe(display uint32, frame vr.FrameData) {
	sample := Sample{
		Display:    display,
		CapturedAt: r.clock.Now().UnixMilli(),
		Frame:      frame,
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, sample)
	count := len(r.pending)
	r.mu.Unlock()

	if count >= r.threshold {
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
}

// Done is closed after Run has flushed the final batch.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Stats returns the capture counters. Safe from any goroutine.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Samples: r.samples.Load(),
		Chunks:  r.chunks.Load(),
		Bytes:   r.bytes.Load(),
	}
}

// Run writes chunks until ctx is cancelled, flushing on the sample
// threshold and on the flush interval, then flushes the remainder.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-r.notify:
			r.flush()
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Recorder) shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.flush()
	close(r.done)
}

// flush writes pending samples as one chunk. A write failure drops the
// batch and is logged; capture is best effort and must not take the
// device service down with a full disk.
func (r *Recorder) flush() {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := r.writer.WriteSamples(batch); err != nil {
		r.logger.Error("writing trace samples", "samples", len(batch), "error", err)
		return
	}
	r.samples.Add(uint64(len(batch)))
	r.chunks.Add(1)
	r.bytes.Store(r.writer.BytesWritten())
}
