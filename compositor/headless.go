// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/WhiteSymmetry/servo/lib/clock"
)

// commandQueueSize bounds how many commands can queue while the
// compositor holds a SyncPoses wait. Presenting sessions send at most
// a handful of commands per frame, so a small buffer suffices.
const commandQueueSize = 64

// ErrStopped is the reply given to SyncPoses commands drained while
// the compositor shuts down.
var ErrStopped = errors.New("compositor stopped")

// UnknownSessionError reports a command for a session that was never
// created or has been released.
type UnknownSessionError struct {
	Session uint32
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown compositor session %d", e.Session)
}

// IsUnknownSession reports whether err is an UnknownSessionError.
func IsUnknownSession(err error) bool {
	var unknownErr *UnknownSessionError
	return errors.As(err, &unknownErr)
}

// SessionInfo is a snapshot of one active session's frame statistics.
type SessionInfo struct {
	Session uint32 `cbor:"session"`
	Frames  uint64 `cbor:"frames"`
}

// Config configures a Headless compositor. Zero values select a 16ms
// frame interval, the real clock, and the default logger.
type Config struct {
	// FrameInterval is the synthetic vsync period: every SyncPoses
	// reply is held for one interval.
	FrameInterval time.Duration
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Headless is a render side with no rendering: it registers sessions,
// paces frames on a clock, and counts submissions. The daemon runs one
// to host presentations without display hardware; tests use it with a
// fake clock for deterministic frame timing.
type Headless struct {
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	commands chan Command
	done     chan struct{}

	mu       sync.Mutex
	sessions map[uint32]uint64
}

// NewHeadless returns a compositor ready for Run.
func NewHeadless(cfg Config) *Headless {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 16 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Headless{
		interval: cfg.FrameInterval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		commands: make(chan Command, commandQueueSize),
		done:     make(chan struct{}),
		sessions: make(map[uint32]uint64),
	}
}

// Commands returns the channel sessions send on.
func (h *Headless) Commands() chan<- Command { return h.commands }

// Done is closed when Run returns. Commands sent after that point are
// never served.
func (h *Headless) Done() <-chan struct{} { return h.done }

// Sessions returns a snapshot of active sessions ordered by session
// ID. Safe to call from any goroutine.
func (h *Headless) Sessions() []SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]SessionInfo, 0, len(h.sessions))
	for session, frames := range h.sessions {
		infos = append(infos, SessionInfo{Session: session, Frames: frames})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Session < infos[j].Session })
	return infos
}

// Run serves commands serially until ctx is cancelled, then drains
// queued commands with error replies so no session blocks on a reply
// that will never come.
func (h *Headless) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
		}
	}
}

func (h *Headless) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case Create:
		h.mu.Lock()
		_, exists := h.sessions[c.Session]
		if !exists {
			h.sessions[c.Session] = 0
		}
		h.mu.Unlock()
		if exists {
			h.logger.Warn("duplicate compositor session create", "session", c.Session)
			return
		}
		h.logger.Debug("compositor session created", "session", c.Session)

	case SyncPoses:
		if !h.hasSession(c.Session) {
			c.Reply <- &UnknownSessionError{Session: c.Session}
			return
		}
		// Synthetic vsync: hold the session for one frame interval.
		select {
		case <-h.clock.After(h.interval):
			c.Reply <- nil
		case <-ctx.Done():
			c.Reply <- ErrStopped
		}

	case SubmitFrame:
		h.mu.Lock()
		_, exists := h.sessions[c.Session]
		if exists {
			h.sessions[c.Session]++
		}
		h.mu.Unlock()
		if !exists {
			h.logger.Warn("frame submitted for unknown session", "session", c.Session)
		}

	case Release:
		h.mu.Lock()
		frames, exists := h.sessions[c.Session]
		delete(h.sessions, c.Session)
		h.mu.Unlock()
		if !exists {
			h.logger.Warn("release for unknown session", "session", c.Session)
			return
		}
		h.logger.Debug("compositor session released", "session", c.Session, "frames", frames)
	}
}

func (h *Headless) hasSession(session uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[session]
	return ok
}

// shutdown closes done first so senders checking it stop, then
// answers every queued SyncPoses so its session can terminate.
func (h *Headless) shutdown() {
	close(h.done)
	for {
		select {
		case cmd := <-h.commands:
			if sync, ok := cmd.(SyncPoses); ok {
				sync.Reply <- ErrStopped
			}
		default:
			return
		}
	}
}
