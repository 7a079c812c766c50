// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the servo-vr-service daemon.
type Config struct {
	// LogLevel selects the minimum slog level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Socket is the Unix socket path for the control socket.
	// Default: /run/servo-vr/service.sock
	Socket string `yaml:"socket"`

	// Pump configures the display event pump.
	Pump PumpConfig `yaml:"pump"`

	// Compositor configures the headless compositor.
	Compositor CompositorConfig `yaml:"compositor"`

	// Drivers configures which display drivers the daemon hosts.
	Drivers DriversConfig `yaml:"drivers"`

	// Trace configures frame trace recording.
	Trace TraceConfig `yaml:"trace"`
}

// PumpConfig configures the display event pump.
type PumpConfig struct {
	// PollInterval is the delay between PollEvents passes while at
	// least one client is registered, as a Go duration string.
	// Default: 500ms
	PollInterval string `yaml:"poll_interval"`
}

// CompositorConfig configures the headless compositor.
type CompositorConfig struct {
	// RefreshRate is the simulated display refresh rate in Hz. The
	// compositor paces frame synchronization at 1/RefreshRate.
	// Default: 60
	RefreshRate float64 `yaml:"refresh_rate"`
}

// DriversConfig configures the display drivers hosted by the daemon.
type DriversConfig struct {
	// Mock configures the synthetic mock driver.
	Mock MockDriverConfig `yaml:"mock"`

	// Replay configures trace playback as a driver.
	Replay ReplayDriverConfig `yaml:"replay"`
}

// MockDriverConfig configures the synthetic mock driver.
type MockDriverConfig struct {
	// Enabled registers the mock driver with the device service.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Profile is the path to a JSONC display profile file. Empty means
	// the built-in default headset profile.
	Profile string `yaml:"profile"`
}

// ReplayDriverConfig configures trace playback as a driver.
type ReplayDriverConfig struct {
	// Trace is the path to a recorded trace file to serve as displays.
	// Empty disables the replay driver.
	Trace string `yaml:"trace"`
}

// TraceConfig configures frame trace recording.
type TraceConfig struct {
	// Output is the path the recorder writes to. Empty disables
	// recording.
	Output string `yaml:"output"`

	// Compression selects the chunk compression: none, lz4, zstd.
	// Default: zstd
	Compression string `yaml:"compression"`

	// FlushThreshold is the buffered sample count that triggers an
	// immediate flush. Default: 256
	FlushThreshold int `yaml:"flush_threshold"`

	// FlushInterval is the periodic flush cadence as a Go duration
	// string. Default: 5s
	FlushInterval string `yaml:"flush_interval"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file, so
// every field has a working value and a config file only needs to name
// what it changes.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Socket:   "/run/servo-vr/service.sock",
		Pump: PumpConfig{
			PollInterval: "500ms",
		},
		Compositor: CompositorConfig{
			RefreshRate: 60,
		},
		Drivers: DriversConfig{
			Mock: MockDriverConfig{
				Enabled: true,
			},
		},
		Trace: TraceConfig{
			Compression:    "zstd",
			FlushThreshold: 256,
			FlushInterval:  "5s",
		},
	}
}

// Load loads configuration from the SERVO_VR_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or discovery. If SERVO_VR_CONFIG is not set,
// this fails. This ensures deterministic, auditable configuration with
// no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("SERVO_VR_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("SERVO_VR_CONFIG environment variable not set; " +
			"set it to the path of your servo-vr.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is ${HOME}
// and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Socket = expandVars(c.Socket, vars)
	c.Drivers.Mock.Profile = expandVars(c.Drivers.Mock.Profile, vars)
	c.Drivers.Replay.Trace = expandVars(c.Drivers.Replay.Trace, vars)
	c.Trace.Output = expandVars(c.Trace.Output, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// PollInterval returns the parsed event pump polling interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return parsePositiveDuration("pump.poll_interval", c.Pump.PollInterval)
}

// FrameInterval returns the compositor frame period derived from the
// configured refresh rate.
func (c *Config) FrameInterval() (time.Duration, error) {
	if c.Compositor.RefreshRate <= 0 {
		return 0, fmt.Errorf("compositor.refresh_rate must be positive, got %v", c.Compositor.RefreshRate)
	}
	return time.Duration(float64(time.Second) / c.Compositor.RefreshRate), nil
}

// TraceFlushInterval returns the parsed recorder flush cadence.
func (c *Config) TraceFlushInterval() (time.Duration, error) {
	return parsePositiveDuration("trace.flush_interval", c.Trace.FlushInterval)
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	logLevels := []string{"debug", "info", "warn", "error"}
	if !contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}

	if c.Socket == "" {
		errs = append(errs, fmt.Errorf("socket is required"))
	}

	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.FrameInterval(); err != nil {
		errs = append(errs, err)
	}
	if c.Compositor.RefreshRate > 1000 {
		errs = append(errs, fmt.Errorf("compositor.refresh_rate %v exceeds 1000 Hz", c.Compositor.RefreshRate))
	}

	if !c.Drivers.Mock.Enabled && c.Drivers.Replay.Trace == "" {
		errs = append(errs, fmt.Errorf("no drivers configured: enable drivers.mock or set drivers.replay.trace"))
	}

	compressions := []string{"none", "lz4", "zstd"}
	if !contains(compressions, c.Trace.Compression) {
		errs = append(errs, fmt.Errorf("trace.compression must be one of: %v", compressions))
	}
	if c.Trace.FlushThreshold <= 0 {
		errs = append(errs, fmt.Errorf("trace.flush_threshold must be positive, got %d", c.Trace.FlushThreshold))
	}
	if _, err := c.TraceFlushInterval(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the directories the daemon writes into: the
// socket directory and, when recording is enabled, the trace output
// directory.
func (c *Config) EnsurePaths() error {
	paths := []string{filepath.Dir(c.Socket)}
	if c.Trace.Output != "" {
		paths = append(paths, filepath.Dir(c.Trace.Output))
	}

	for _, path := range paths {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
