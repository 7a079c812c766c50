// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("expected log_level=info, got %s", cfg.LogLevel)
	}

	if cfg.Socket != "/run/servo-vr/service.sock" {
		t.Errorf("expected socket=/run/servo-vr/service.sock, got %s", cfg.Socket)
	}

	if !cfg.Drivers.Mock.Enabled {
		t.Error("expected drivers.mock.enabled=true")
	}

	if cfg.Trace.Compression != "zstd" {
		t.Errorf("expected trace.compression=zstd, got %s", cfg.Trace.Compression)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadRequiresServoVRConfig(t *testing.T) {
	t.Setenv("SERVO_VR_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SERVO_VR_CONFIG not set, got nil")
	}

	if !strings.Contains(err.Error(), "SERVO_VR_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoadWithServoVRConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	configContent := `
log_level: debug
socket: /test/service.sock
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("SERVO_VR_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level=debug, got %s", cfg.LogLevel)
	}

	if cfg.Socket != "/test/service.sock" {
		t.Errorf("expected socket=/test/service.sock, got %s", cfg.Socket)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	configContent := `
log_level: warn
socket: /custom/service.sock

pump:
  poll_interval: 250ms

compositor:
  refresh_rate: 90

drivers:
  mock:
    enabled: true
    profile: /custom/headset.jsonc
  replay:
    trace: /custom/session.svt

trace:
  output: /custom/capture.svt
  compression: lz4
  flush_threshold: 64
  flush_interval: 2s
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected log_level=warn, got %s", cfg.LogLevel)
	}

	if cfg.Socket != "/custom/service.sock" {
		t.Errorf("expected socket=/custom/service.sock, got %s", cfg.Socket)
	}

	if cfg.Pump.PollInterval != "250ms" {
		t.Errorf("expected poll_interval=250ms, got %s", cfg.Pump.PollInterval)
	}

	if cfg.Compositor.RefreshRate != 90 {
		t.Errorf("expected refresh_rate=90, got %v", cfg.Compositor.RefreshRate)
	}

	if cfg.Drivers.Mock.Profile != "/custom/headset.jsonc" {
		t.Errorf("expected mock profile=/custom/headset.jsonc, got %s", cfg.Drivers.Mock.Profile)
	}

	if cfg.Drivers.Replay.Trace != "/custom/session.svt" {
		t.Errorf("expected replay trace=/custom/session.svt, got %s", cfg.Drivers.Replay.Trace)
	}

	if cfg.Trace.Output != "/custom/capture.svt" {
		t.Errorf("expected trace output=/custom/capture.svt, got %s", cfg.Trace.Output)
	}

	if cfg.Trace.Compression != "lz4" {
		t.Errorf("expected trace compression=lz4, got %s", cfg.Trace.Compression)
	}

	if cfg.Trace.FlushThreshold != 64 {
		t.Errorf("expected flush_threshold=64, got %d", cfg.Trace.FlushThreshold)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFilePreservesDefaults(t *testing.T) {
	// A file that names only one field keeps working defaults for the
	// rest.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	configContent := "socket: /partial/service.sock\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Socket != "/partial/service.sock" {
		t.Errorf("expected socket=/partial/service.sock, got %s", cfg.Socket)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level=info, got %s", cfg.LogLevel)
	}

	if cfg.Pump.PollInterval != "500ms" {
		t.Errorf("expected default poll_interval=500ms, got %s", cfg.Pump.PollInterval)
	}

	if cfg.Trace.FlushThreshold != 256 {
		t.Errorf("expected default flush_threshold=256, got %d", cfg.Trace.FlushThreshold)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	if err := os.WriteFile(configPath, []byte("socket: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	// Environment variables do NOT override config file values. The
	// config file is the single source of truth.
	t.Setenv("SERVO_VR_SOCKET", "/env/service.sock")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	configContent := "socket: /file/service.sock\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Socket != "/file/service.sock" {
		t.Errorf("expected socket=/file/service.sock from file, got %s (env vars should not override)", cfg.Socket)
	}
}

func TestExpandVariablesInPaths(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "servo-vr.yaml")

	configContent := `
socket: ${XDG_RUNTIME_DIR:-/tmp}/servo-vr/service.sock
trace:
  output: ${HOME}/captures/session.svt
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Socket != "/tmp/servo-vr/service.sock" {
		t.Errorf("expected expanded socket=/tmp/servo-vr/service.sock, got %s", cfg.Socket)
	}

	if cfg.Trace.Output != "/home/tester/captures/session.svt" {
		t.Errorf("expected expanded output=/home/tester/captures/session.svt, got %s", cfg.Trace.Output)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/servo",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/servo",
		},
		{
			input:    "${SERVO_VR_MISSING_VAR:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()

	poll, err := cfg.PollInterval()
	if err != nil {
		t.Fatalf("PollInterval: %v", err)
	}
	if poll != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", poll)
	}

	frame, err := cfg.FrameInterval()
	if err != nil {
		t.Fatalf("FrameInterval: %v", err)
	}
	if frame != time.Second/60 {
		t.Errorf("FrameInterval = %v, want %v", frame, time.Second/60)
	}

	flush, err := cfg.TraceFlushInterval()
	if err != nil {
		t.Fatalf("TraceFlushInterval: %v", err)
	}
	if flush != 5*time.Second {
		t.Errorf("TraceFlushInterval = %v, want 5s", flush)
	}
}

func TestFrameIntervalTracksRefreshRate(t *testing.T) {
	cfg := Default()
	cfg.Compositor.RefreshRate = 90

	frame, err := cfg.FrameInterval()
	if err != nil {
		t.Fatalf("FrameInterval: %v", err)
	}

	rate := float64(90)
	want := time.Duration(float64(time.Second) / rate)
	if frame != want {
		t.Errorf("FrameInterval = %v, want %v", frame, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.LogLevel = "verbose"
			},
			wantErr: true,
		},
		{
			name: "empty socket path",
			modify: func(c *Config) {
				c.Socket = ""
			},
			wantErr: true,
		},
		{
			name: "unparseable poll interval",
			modify: func(c *Config) {
				c.Pump.PollInterval = "fast"
			},
			wantErr: true,
		},
		{
			name: "negative poll interval",
			modify: func(c *Config) {
				c.Pump.PollInterval = "-1s"
			},
			wantErr: true,
		},
		{
			name: "zero refresh rate",
			modify: func(c *Config) {
				c.Compositor.RefreshRate = 0
			},
			wantErr: true,
		},
		{
			name: "absurd refresh rate",
			modify: func(c *Config) {
				c.Compositor.RefreshRate = 100000
			},
			wantErr: true,
		},
		{
			name: "no drivers at all",
			modify: func(c *Config) {
				c.Drivers.Mock.Enabled = false
				c.Drivers.Replay.Trace = ""
			},
			wantErr: true,
		},
		{
			name: "replay only is fine",
			modify: func(c *Config) {
				c.Drivers.Mock.Enabled = false
				c.Drivers.Replay.Trace = "/captures/session.svt"
			},
			wantErr: false,
		},
		{
			name: "unknown compression",
			modify: func(c *Config) {
				c.Trace.Compression = "gzip"
			},
			wantErr: true,
		},
		{
			name: "zero flush threshold",
			modify: func(c *Config) {
				c.Trace.FlushThreshold = 0
			},
			wantErr: true,
		},
		{
			name: "unparseable flush interval",
			modify: func(c *Config) {
				c.Trace.FlushInterval = "soon"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Socket = filepath.Join(tmpDir, "run", "service.sock")
	cfg.Trace.Output = filepath.Join(tmpDir, "captures", "session.svt")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	for _, path := range []string{filepath.Join(tmpDir, "run"), filepath.Join(tmpDir, "captures")} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
