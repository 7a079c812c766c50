// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WhiteSymmetry/servo/vr"
)

// requestQueueSize bounds how many requests can sit queued ahead of
// the service loop. Sessions block on the send once the queue is full,
// which keeps a stalled driver from accumulating unbounded work.
const requestQueueSize = 64

// Service owns every driver handle and processes device requests one
// at a time on a single goroutine. Construct with New, then call Run
// exactly once.
type Service struct {
	drivers  []vr.Driver
	requests chan Request
	done     chan struct{}
	logger   *slog.Logger

	// frameObserver, when set, sees a copy of every frame data
	// snapshot successfully retrieved from a device.
	frameObserver func(display uint32, data vr.FrameData)

	// State below is touched only by the Run goroutine.
	devices    map[uint32]vr.Device
	displays   map[uint32]vr.DisplayData
	order      []uint32
	clients    map[ClientID]*eventQueue
	presenting map[uint32]ClientID
}

// New creates a service over the given drivers. The service is inert
// until Run is called.
func New(drivers []vr.Driver, logger *slog.Logger) *Service {
	return &Service{
		drivers:    drivers,
		requests:   make(chan Request, requestQueueSize),
		done:       make(chan struct{}),
		logger:     logger,
		devices:    make(map[uint32]vr.Device),
		displays:   make(map[uint32]vr.DisplayData),
		clients:    make(map[ClientID]*eventQueue),
		presenting: make(map[uint32]ClientID),
	}
}

// SetFrameObserver registers a hook invoked with a copy of every frame
// data snapshot the service successfully retrieves. The observer runs
// on the service goroutine and must not block. Must be called before
// Run.
func (s *Service) SetFrameObserver(observer func(display uint32, data vr.FrameData)) {
	s.frameObserver = observer
}

// Requests returns the channel sessions send requests on. Senders
// should select against Done to avoid blocking on a stopped service.
func (s *Service) Requests() chan<- Request {
	return s.requests
}

// Done returns a channel closed when Run has returned. After Done is
// closed, no further replies will be sent.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Run indexes the drivers' devices and processes requests until an
// Exit request arrives or ctx is cancelled. Returns nil on Exit and
// the context error on cancellation.
func (s *Service) Run(ctx context.Context) error {
	s.indexDevices()
	s.logger.Info("device service running",
		"drivers", len(s.drivers),
		"displays", len(s.order),
	)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case request := <-s.requests:
			if _, isExit := request.(Exit); isExit {
				s.shutdown()
				return nil
			}
			s.handle(request)
		}
	}
}

// indexDevices builds the display ID index from every driver's device
// list. Duplicate IDs keep the first device seen.
func (s *Service) indexDevices() {
	for _, driver := range s.drivers {
		for _, device := range driver.Displays() {
			data := device.Data()
			id := data.DisplayID
			if _, exists := s.devices[id]; exists {
				s.logger.Warn("duplicate display id, keeping first",
					"display", id, "driver", driver.Name())
				continue
			}
			s.devices[id] = device
			s.displays[id] = data
			s.order = append(s.order, id)
		}
	}
}

// shutdown closes Done, drains queued requests with an error reply,
// and stops every client pump. Callers whose send raced past the drain
// recover through Done (see the session package's round-trip helper).
func (s *Service) shutdown() {
	close(s.done)

	for {
		select {
		case request := <-s.requests:
			s.refuse(request)
		default:
			for client, queue := range s.clients {
				queue.close()
				delete(s.clients, client)
			}
			s.logger.Info("device service stopped")
			return
		}
	}
}

// refuse replies ErrServiceStopped to a request drained during
// shutdown. Fire-and-forget requests are dropped silently.
func (s *Service) refuse(request Request) {
	switch request := request.(type) {
	case PollEvents:
		request.Reply <- false
	case ListDisplays:
		request.Reply <- Fail[[]vr.DisplayData](ErrServiceStopped)
	case GetFrameData:
		request.Reply <- Fail[vr.FrameData](ErrServiceStopped)
	case ResetPose:
		if request.Reply != nil {
			request.Reply <- Fail[Unit](ErrServiceStopped)
		}
	case RequestPresent:
		request.Reply <- Fail[uint32](ErrServiceStopped)
	case ExitPresent:
		request.Reply <- Fail[Unit](ErrServiceStopped)
	}
}

func (s *Service) handle(request Request) {
	switch request := request.(type) {
	case RegisterClient:
		s.handleRegister(request)
	case UnregisterClient:
		s.handleUnregister(request)
	case PollEvents:
		s.handlePollEvents(request)
	case ListDisplays:
		s.handleListDisplays(request)
	case GetFrameData:
		s.handleGetFrameData(request)
	case ResetPose:
		s.handleResetPose(request)
	case RequestPresent:
		s.handleRequestPresent(request)
	case ExitPresent:
		s.handleExitPresent(request)
	}
}

func (s *Service) handleRegister(request RegisterClient) {
	if existing, ok := s.clients[request.Client]; ok {
		// Re-registration replaces the previous sink.
		existing.close()
	}
	queue := newEventQueue()
	s.clients[request.Client] = queue
	go queue.pump(request.Events)
	s.logger.Debug("client registered", "client", request.Client, "clients", len(s.clients))
}

func (s *Service) handleUnregister(request UnregisterClient) {
	queue, ok := s.clients[request.Client]
	if !ok {
		return
	}
	queue.close()
	delete(s.clients, request.Client)
	s.logger.Debug("client unregistered", "client", request.Client, "clients", len(s.clients))
}

func (s *Service) handlePollEvents(request PollEvents) {
	events := s.poll()
	if len(events) > 0 {
		for _, queue := range s.clients {
			queue.push(events...)
		}
	}
	request.Reply <- len(s.clients) > 0
}

// poll gathers pending events from every driver, in driver order, and
// applies each to the cached descriptors before fan-out.
func (s *Service) poll() []vr.DisplayEvent {
	var events []vr.DisplayEvent
	for _, driver := range s.drivers {
		events = append(events, driver.PollEvents()...)
	}
	for _, event := range events {
		s.applyEvent(event)
	}
	return events
}

// applyEvent folds one event into the descriptor cache.
func (s *Service) applyEvent(event vr.DisplayEvent) {
	switch event := event.(type) {
	case vr.Connect:
		s.updateDisplay(event.Display)
	case vr.Disconnect:
		if data, ok := s.displays[event.ID]; ok {
			data.Connected = false
			s.displays[event.ID] = data
		}
	case vr.Activate:
		s.updateDisplay(event.Display)
	case vr.Deactivate:
		s.updateDisplay(event.Display)
	case vr.Blur:
		s.updateDisplay(event.Display)
	case vr.Focus:
		s.updateDisplay(event.Display)
	case vr.PresentChange:
		s.updateDisplay(event.Display)
	case vr.Change:
		s.updateDisplay(event.Display)
	}
}

// updateDisplay replaces the cached descriptor and, for a display not
// seen at startup (hot plug), locates its device handle.
func (s *Service) updateDisplay(data vr.DisplayData) {
	id := data.DisplayID
	if _, known := s.displays[id]; !known {
		s.order = append(s.order, id)
		if device := s.findDevice(id); device != nil {
			s.devices[id] = device
		} else {
			s.logger.Warn("event for display without a device handle", "display", id)
		}
	}
	s.displays[id] = data.Clone()
}

// findDevice re-scans the drivers for the device backing a display
// that appeared after startup.
func (s *Service) findDevice(id uint32) vr.Device {
	for _, driver := range s.drivers {
		for _, device := range driver.Displays() {
			if device.Data().DisplayID == id {
				return device
			}
		}
	}
	return nil
}

func (s *Service) handleListDisplays(request ListDisplays) {
	list := make([]vr.DisplayData, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.displays[id].Clone())
	}
	request.Reply <- Ok(list)
}

func (s *Service) handleGetFrameData(request GetFrameData) {
	device, ok := s.devices[request.Display]
	if !ok {
		request.Reply <- Fail[vr.FrameData](&UnknownDisplayError{Display: request.Display})
		return
	}
	data, err := device.FrameData(request.DepthNear, request.DepthFar)
	if err != nil {
		request.Reply <- Fail[vr.FrameData](fmt.Errorf("retrieving frame data from display %d: %w", request.Display, err))
		return
	}
	if s.frameObserver != nil {
		s.frameObserver(request.Display, data.Clone())
	}
	request.Reply <- Ok(data)
}

func (s *Service) handleResetPose(request ResetPose) {
	device, ok := s.devices[request.Display]
	if !ok {
		if request.Reply != nil {
			request.Reply <- Fail[Unit](&UnknownDisplayError{Display: request.Display})
		}
		return
	}
	err := device.ResetPose()
	if request.Reply == nil {
		if err != nil {
			s.logger.Warn("reset pose failed", "display", request.Display, "error", err)
		}
		return
	}
	if err != nil {
		request.Reply <- Fail[Unit](fmt.Errorf("resetting pose on display %d: %w", request.Display, err))
		return
	}
	request.Reply <- Ok(Unit{})
}

func (s *Service) handleRequestPresent(request RequestPresent) {
	device, ok := s.devices[request.Display]
	if !ok {
		request.Reply <- Fail[uint32](&UnknownDisplayError{Display: request.Display})
		return
	}
	if _, claimed := s.presenting[request.Display]; claimed {
		request.Reply <- Fail[uint32](&PresentationClaimError{Display: request.Display, Claimed: true})
		return
	}
	session, err := device.StartPresent()
	if err != nil {
		request.Reply <- Fail[uint32](fmt.Errorf("starting presentation on display %d: %w", request.Display, err))
		return
	}
	s.presenting[request.Display] = request.Client
	s.logger.Info("presentation started",
		"display", request.Display,
		"client", request.Client,
		"session", session,
	)
	request.Reply <- Ok(session)
}

func (s *Service) handleExitPresent(request ExitPresent) {
	device, ok := s.devices[request.Display]
	if !ok {
		request.Reply <- Fail[Unit](&UnknownDisplayError{Display: request.Display})
		return
	}
	owner, claimed := s.presenting[request.Display]
	if !claimed || owner != request.Client {
		request.Reply <- Fail[Unit](&PresentationClaimError{Display: request.Display, Claimed: false})
		return
	}
	if err := device.StopPresent(); err != nil {
		request.Reply <- Fail[Unit](fmt.Errorf("stopping presentation on display %d: %w", request.Display, err))
		return
	}
	delete(s.presenting, request.Display)
	s.logger.Info("presentation stopped", "display", request.Display, "client", request.Client)
	request.Reply <- Ok(Unit{})
}
