// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/WhiteSymmetry/servo/compositor"
	"github.com/WhiteSymmetry/servo/devices"
	"github.com/WhiteSymmetry/servo/driver/mockvr"
	"github.com/WhiteSymmetry/servo/driver/replay"
	"github.com/WhiteSymmetry/servo/lib/clock"
	"github.com/WhiteSymmetry/servo/lib/config"
	"github.com/WhiteSymmetry/servo/lib/service"
	"github.com/WhiteSymmetry/servo/lib/version"
	"github.com/WhiteSymmetry/servo/trace"
	"github.com/WhiteSymmetry/servo/vr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     string
		socketPath     string
		presentDisplay uint
		showVersion    bool
	)
	flag.StringVar(&configPath, "config", "", "path to servo-vr.yaml (default: $SERVO_VR_CONFIG)")
	flag.StringVar(&socketPath, "socket", "", "control socket path (overrides the config file)")
	flag.UintVar(&presentDisplay, "present-display", 0, "host an in-process presentation on this display ID (0 disables)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("servo-vr-service %s\n", version.Info())
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Socket = socketPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drivers, err := buildDrivers(cfg, logger)
	if err != nil {
		return err
	}
	descriptors := displaySnapshots(drivers)

	clk := clock.Real()
	router := devices.New(drivers, logger)

	// The recorder observes frames on the device service goroutine,
	// so it must be hooked before the service starts.
	var recorder *trace.Recorder
	recorderDone := make(chan error, 1)
	if cfg.Trace.Output != "" {
		sink, err := os.Create(cfg.Trace.Output)
		if err != nil {
			return fmt.Errorf("creating trace output %s: %w", cfg.Trace.Output, err)
		}
		defer sink.Close()

		compression, err := trace.ParseCompressionTag(cfg.Trace.Compression)
		if err != nil {
			return err
		}
		flushInterval, err := cfg.TraceFlushInterval()
		if err != nil {
			return err
		}
		recorder, err = trace.NewRecorder(trace.RecorderConfig{
			Sink:           sink,
			Compression:    compression,
			Descriptors:    descriptors,
			FlushThreshold: cfg.Trace.FlushThreshold,
			FlushInterval:  flushInterval,
			Clock:          clk,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("starting trace recorder: %w", err)
		}
		router.SetFrameObserver(recorder.Observe)

		go func() { recorderDone <- recorder.Run(ctx) }()
		logger.Info("trace recorder running",
			"output", cfg.Trace.Output,
			"compression", compression.String(),
		)
	}

	routerDone := make(chan error, 1)
	go func() { routerDone <- router.Run(ctx) }()

	frameInterval, err := cfg.FrameInterval()
	if err != nil {
		return err
	}
	comp := compositor.NewHeadless(compositor.Config{
		FrameInterval: frameInterval,
		Clock:         clk,
		Logger:        logger,
	})
	compositorDone := make(chan error, 1)
	go func() { compositorDone <- comp.Run(ctx) }()

	pollInterval, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	pump := newEventPump(router.Requests(), router.Done(), pollInterval, clk, logger)
	go pump.run(ctx)

	var clients atomic.Int64
	if presentDisplay != 0 {
		_, err := startPresenter(ctx, presenterConfig{
			Display:    uint32(presentDisplay),
			Requests:   router.Requests(),
			RouterDone: router.Done(),
			Compositor: comp.Commands(),
			Clients:    &clients,
			Clock:      clk,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("presenting on display %d: %w", presentDisplay, err)
		}
		pump.Kick()
	}

	vrService := &VRService{
		requests:    router.Requests(),
		routerDone:  router.Done(),
		compositor:  comp,
		recorder:    recorder,
		traceOutput: cfg.Trace.Output,
		clients:     &clients,
		clock:       clk,
		startedAt:   clk.Now(),
		logger:      logger,
	}

	socketServer := service.NewSocketServer(cfg.Socket, logger)
	vrService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() { socketDone <- socketServer.Serve(ctx) }()

	logger.Info("vr service running",
		"socket", cfg.Socket,
		"drivers", len(drivers),
		"displays", len(descriptors),
		"tracing", cfg.Trace.Output != "",
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// Wait for the socket server to drain active connections.
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	<-pump.Done()
	if err := <-routerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("device service error", "error", err)
	}
	if err := <-compositorDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("compositor error", "error", err)
	}
	if recorder != nil {
		if err := <-recorderDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("trace recorder error", "error", err)
		}
		stats := recorder.Stats()
		logger.Info("trace closed",
			"output", cfg.Trace.Output,
			"samples", stats.Samples,
			"chunks", stats.Chunks,
			"bytes", stats.Bytes,
		)
	}

	return nil
}

// buildDrivers constructs the driver set the configuration enables.
func buildDrivers(cfg *config.Config, logger *slog.Logger) ([]vr.Driver, error) {
	var drivers []vr.Driver

	if cfg.Drivers.Mock.Enabled {
		mockCfg := mockvr.Config{Logger: logger}
		if cfg.Drivers.Mock.Profile != "" {
			profiles, err := mockvr.ReadFile(cfg.Drivers.Mock.Profile)
			if err != nil {
				return nil, fmt.Errorf("loading display profiles: %w", err)
			}
			mockCfg.Profiles = profiles
		}
		driver, err := mockvr.New(mockCfg)
		if err != nil {
			return nil, fmt.Errorf("building mock driver: %w", err)
		}
		drivers = append(drivers, driver)
	}

	if cfg.Drivers.Replay.Trace != "" {
		driver, err := replay.Open(cfg.Drivers.Replay.Trace)
		if err != nil {
			return nil, fmt.Errorf("building replay driver: %w", err)
		}
		drivers = append(drivers, driver)
	}

	return drivers, nil
}

// displaySnapshots collects every driver's initial display
// descriptors, used for the trace header and the startup log. The
// device service builds its own index from the same source.
func displaySnapshots(drivers []vr.Driver) []vr.DisplayData {
	var snapshots []vr.DisplayData
	for _, driver := range drivers {
		for _, device := range driver.Displays() {
			snapshots = append(snapshots, device.Data())
		}
	}
	return snapshots
}

// VRService is the control-socket state.
type VRService struct {
	requests   chan<- devices.Request
	routerDone <-chan struct{}
	compositor *compositor.Headless

	// recorder is nil when tracing is disabled.
	recorder    *trace.Recorder
	traceOutput string

	// clients counts the VR clients this process has registered with
	// the device service (today: the in-process presenter).
	clients *atomic.Int64

	clock     clock.Clock
	startedAt time.Time
	logger    *slog.Logger
}
