// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoContainsVersionAndCommit(t *testing.T) {
	info := Info()

	if !strings.Contains(info, Version) {
		t.Errorf("Info() = %q, missing version %q", info, Version)
	}
	if !strings.Contains(info, GitCommit) {
		t.Errorf("Info() = %q, missing commit %q", info, GitCommit)
	}
}

func TestInfoDirtySuffix(t *testing.T) {
	originalDirty := GitDirty
	defer func() { GitDirty = originalDirty }()

	GitDirty = "true"
	if !strings.Contains(Info(), "-dirty") {
		t.Errorf("Info() = %q, expected -dirty suffix", Info())
	}

	GitDirty = "false"
	if strings.Contains(Info(), "-dirty") {
		t.Errorf("Info() = %q, unexpected -dirty suffix", Info())
	}
}

func TestFullContainsPlatform(t *testing.T) {
	full := Full()

	if !strings.Contains(full, "Go:") {
		t.Errorf("Full() = %q, missing Go version line", full)
	}
	if !strings.Contains(full, "Platform:") {
		t.Errorf("Full() = %q, missing platform line", full)
	}
}

func TestShortAndCommit(t *testing.T) {
	if got := Short(); got != Version {
		t.Errorf("Short() = %q, want %q", got, Version)
	}
	if got := Commit(); got != GitCommit {
		t.Errorf("Commit() = %q, want %q", got, GitCommit)
	}
}
