// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package mockvr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WhiteSymmetry/servo/vr"
)

const fixtureJSONC = `{
	// Two simulated displays on one driver.
	"displays": [
		{
			"name": "Room Scale HMD",
			"capabilities": {
				"has_orientation": true,
				"has_position": true,
				"can_present": true,
			},
			"stage": {"size_x": 3.0, "size_z": 2.5},
			"left_eye": {
				"offset": [-0.032, 0, 0],
				"field_of_view": {
					"up_degrees": 50,
					"right_degrees": 45,
					"down_degrees": 50,
					"left_degrees": 45,
				},
				"render_width": 1080,
				"render_height": 1200,
			},
			"right_eye": {
				"offset": [0.032, 0, 0],
				"field_of_view": {
					"up_degrees": 50,
					"right_degrees": 45,
					"down_degrees": 50,
					"left_degrees": 45,
				},
				"render_width": 1080,
				"render_height": 1200,
			},
		},
		{
			/* Seated three-dof viewer; eyes take package defaults. */
			"name": "Seated Viewer",
			"capabilities": {"has_orientation": true, "can_present": true},
		},
	],
}`

func TestParseJSONCFixture(t *testing.T) {
	t.Parallel()
	profiles, err := Parse([]byte(fixtureJSONC))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("parsed %d profiles, want 2", len(profiles))
	}

	first := profiles[0]
	if first.Name != "Room Scale HMD" {
		t.Errorf("name = %q, want \"Room Scale HMD\"", first.Name)
	}
	if !first.Capabilities.HasPosition || !first.Capabilities.CanPresent {
		t.Errorf("capabilities = %+v, want position and present", first.Capabilities)
	}
	if first.Stage == nil || first.Stage.SizeX != 3 || first.Stage.SizeZ != 2.5 {
		t.Errorf("stage = %+v, want 3x2.5", first.Stage)
	}
	if got := first.LeftEye.Offset; got != [3]float32{-0.032, 0, 0} {
		t.Errorf("left eye offset = %v", got)
	}
	if got := first.RightEye.FieldOfView.UpDegrees; got != 50 {
		t.Errorf("right eye up_degrees = %g, want 50", got)
	}

	second := profiles[1]
	if second.Stage != nil {
		t.Errorf("seated profile has stage %+v, want none", second.Stage)
	}
	if second.LeftEye != (EyeProfile{}) {
		t.Errorf("unspecified eye parsed as %+v, want empty", second.LeftEye)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	if _, err := Parse([]byte(`{"displays": [}`)); err == nil {
		t.Error("Parse should fail on malformed JSON")
	}
}

func TestParseRejectsEmptyDisplayList(t *testing.T) {
	t.Parallel()
	if _, err := Parse([]byte(`{"displays": []}`)); err == nil {
		t.Error("Parse should fail when no displays are declared")
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "displays.jsonc")
	if err := os.WriteFile(path, []byte(fixtureJSONC), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	profiles, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("read %d profiles, want 2", len(profiles))
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Error("ReadFile should fail for a missing file")
	}
}

func TestValidateReportsIssues(t *testing.T) {
	t.Parallel()
	profile := Profile{
		Stage: &Stage{SizeX: -1, SizeZ: 2},
		LeftEye: EyeProfile{
			FieldOfView: FieldOfView{UpDegrees: 95, RightDegrees: 45, DownDegrees: 45, LeftDegrees: 45},
			RenderWidth: 1080,
		},
		RightEye: defaultEye(vr.EyeRight),
	}

	issues := Validate(profile)
	wantSubstrings := []string{
		"display has no name",
		"stage extents must be positive",
		"up_degrees 95 out of range",
		"render target must have nonzero dimensions",
	}
	for _, want := range wantSubstrings {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("issues %v missing %q", issues, want)
		}
	}
}

func TestValidateAcceptsDefaultProfile(t *testing.T) {
	t.Parallel()
	if issues := Validate(DefaultProfile()); len(issues) != 0 {
		t.Errorf("default profile reported issues: %v", issues)
	}
}

func TestWithDefaultsFillsEmptyEyes(t *testing.T) {
	t.Parallel()
	profile := Profile{Name: "Seated Viewer"}.withDefaults()

	if got := profile.LeftEye.Offset[0]; got != -0.03 {
		t.Errorf("left eye offset X = %g, want -0.03", got)
	}
	if got := profile.RightEye.Offset[0]; got != 0.03 {
		t.Errorf("right eye offset X = %g, want 0.03", got)
	}
	if got := profile.LeftEye.RenderWidth; got != 1512 {
		t.Errorf("left eye render width = %d, want 1512", got)
	}
	if got := profile.RightEye.FieldOfView.DownDegrees; got != 45 {
		t.Errorf("right eye down_degrees = %g, want 45", got)
	}
}

func TestDisplayDataConversion(t *testing.T) {
	t.Parallel()
	data := DefaultProfile().displayData(7)

	if data.DisplayID != 7 {
		t.Errorf("display ID = %d, want 7", data.DisplayID)
	}
	if data.DisplayName != "Servo Mock HMD" {
		t.Errorf("display name = %q", data.DisplayName)
	}
	if !data.Connected {
		t.Error("new display should report connected")
	}
	if !data.Capabilities.CanPresent {
		t.Error("default profile should present")
	}
	if data.StageParameters == nil {
		t.Fatal("default profile should produce stage parameters")
	}
	if got := data.StageParameters.SittingToStandingTransform[13]; got != standingOffsetY {
		t.Errorf("standing transform Y = %g, want %g", got, standingOffsetY)
	}
	if got := data.LeftEyeParameters.RenderHeight; got != 1680 {
		t.Errorf("left eye render height = %d, want 1680", got)
	}
}
