// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package mockvr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/WhiteSymmetry/servo/vr"
)

// Profile describes one simulated display. The zero value is not
// usable on its own; start from DefaultProfile or a fixture file.
type Profile struct {
	// Name is the device name reported to sessions. Required.
	Name string `json:"name"`

	Capabilities Capabilities `json:"capabilities"`

	// Stage declares a room-scale play area. Nil means seated-only.
	Stage *Stage `json:"stage,omitempty"`

	// LeftEye and RightEye configure the per-eye rendering setup. An
	// eye left entirely empty takes the package defaults.
	LeftEye  EyeProfile `json:"left_eye"`
	RightEye EyeProfile `json:"right_eye"`
}

// Capabilities mirrors the capability flags a profile grants its
// device.
type Capabilities struct {
	HasOrientation     bool `json:"has_orientation"`
	HasPosition        bool `json:"has_position"`
	HasExternalDisplay bool `json:"has_external_display"`
	CanPresent         bool `json:"can_present"`
}

// Stage declares the play area extents in meters.
type Stage struct {
	SizeX float32 `json:"size_x"`
	SizeZ float32 `json:"size_z"`
}

// EyeProfile configures one eye's frustum and render target.
type EyeProfile struct {
	// Offset is the eye's displacement from the head center in
	// meters, typically half the IPD on X.
	Offset [3]float32 `json:"offset"`

	FieldOfView FieldOfView `json:"field_of_view"`

	RenderWidth  uint32 `json:"render_width"`
	RenderHeight uint32 `json:"render_height"`
}

// FieldOfView is the per-edge frustum half angle in degrees.
type FieldOfView struct {
	UpDegrees    float64 `json:"up_degrees"`
	RightDegrees float64 `json:"right_degrees"`
	DownDegrees  float64 `json:"down_degrees"`
	LeftDegrees  float64 `json:"left_degrees"`
}

// standingOffsetY is the sitting-to-standing translation applied to
// profiles that declare a stage.
const standingOffsetY = 0.75

// DefaultProfile returns the built-in room-scale display used when no
// profile file is configured.
func DefaultProfile() Profile {
	return Profile{
		Name: "Servo Mock HMD",
		Capabilities: Capabilities{
			HasOrientation: true,
			HasPosition:    true,
			CanPresent:     true,
		},
		Stage:    &Stage{SizeX: 2, SizeZ: 1.5},
		LeftEye:  defaultEye(vr.EyeLeft),
		RightEye: defaultEye(vr.EyeRight),
	}
}

func defaultEye(eye vr.Eye) EyeProfile {
	offset := float32(0.03)
	if eye == vr.EyeLeft {
		offset = -0.03
	}
	return EyeProfile{
		Offset: [3]float32{offset, 0, 0},
		FieldOfView: FieldOfView{
			UpDegrees:    45,
			RightDegrees: 45,
			DownDegrees:  45,
			LeftDegrees:  45,
		},
		RenderWidth:  1512,
		RenderHeight: 1680,
	}
}

type profileFile struct {
	Displays []Profile `json:"displays"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the display profiles.
func Parse(data []byte) ([]Profile, error) {
	stripped := jsonc.ToJSON(data)

	var file profileFile
	if err := json.Unmarshal(stripped, &file); err != nil {
		return nil, fmt.Errorf("parsing display profiles: %w", err)
	}
	if len(file.Displays) == 0 {
		return nil, errors.New("display profile file declares no displays")
	}
	return file.Displays, nil
}

// ReadFile reads a JSONC profile file from disk and parses it.
func ReadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	profiles, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// Validate checks a profile for structural issues. Returns a list of
// human-readable issue descriptions; an empty list means the profile
// is valid. Run after withDefaults so empty eyes do not report.
func Validate(profile Profile) []string {
	var issues []string

	if profile.Name == "" {
		issues = append(issues, "display has no name")
	}
	if profile.Stage != nil {
		if profile.Stage.SizeX <= 0 || profile.Stage.SizeZ <= 0 {
			issues = append(issues, fmt.Sprintf(
				"stage extents must be positive, got %gx%g",
				profile.Stage.SizeX, profile.Stage.SizeZ))
		}
	}
	issues = append(issues, validateEye(profile.LeftEye, "left_eye")...)
	issues = append(issues, validateEye(profile.RightEye, "right_eye")...)
	return issues
}

func validateEye(eye EyeProfile, prefix string) []string {
	var issues []string

	angles := []struct {
		name  string
		value float64
	}{
		{"up_degrees", eye.FieldOfView.UpDegrees},
		{"right_degrees", eye.FieldOfView.RightDegrees},
		{"down_degrees", eye.FieldOfView.DownDegrees},
		{"left_degrees", eye.FieldOfView.LeftDegrees},
	}
	for _, angle := range angles {
		if angle.value <= 0 || angle.value >= 90 {
			issues = append(issues, fmt.Sprintf(
				"%s: %s %g out of range (0, 90)", prefix, angle.name, angle.value))
		}
	}
	if eye.RenderWidth == 0 || eye.RenderHeight == 0 {
		issues = append(issues, fmt.Sprintf(
			"%s: render target must have nonzero dimensions", prefix))
	}
	return issues
}

// withDefaults fills eyes that were left entirely empty.
func (p Profile) withDefaults() Profile {
	if p.LeftEye == (EyeProfile{}) {
		p.LeftEye = defaultEye(vr.EyeLeft)
	}
	if p.RightEye == (EyeProfile{}) {
		p.RightEye = defaultEye(vr.EyeRight)
	}
	return p
}

// displayData converts the profile to the descriptor reported for a
// device with the given display ID.
func (p Profile) displayData(id uint32) vr.DisplayData {
	data := vr.DisplayData{
		DisplayID:   id,
		DisplayName: p.Name,
		Connected:   true,
		Capabilities: vr.Capabilities{
			HasOrientation:     p.Capabilities.HasOrientation,
			HasPosition:        p.Capabilities.HasPosition,
			HasExternalDisplay: p.Capabilities.HasExternalDisplay,
			CanPresent:         p.Capabilities.CanPresent,
		},
		LeftEyeParameters:  p.LeftEye.parameters(),
		RightEyeParameters: p.RightEye.parameters(),
	}
	if p.Stage != nil {
		transform := vr.IdentityMatrix()
		transform[13] = standingOffsetY
		data.StageParameters = &vr.StageParameters{
			SittingToStandingTransform: transform,
			SizeX:                      p.Stage.SizeX,
			SizeZ:                      p.Stage.SizeZ,
		}
	}
	return data
}

func (e EyeProfile) parameters() vr.EyeParameters {
	return vr.EyeParameters{
		Offset: e.Offset,
		FieldOfView: vr.FieldOfView{
			UpDegrees:    e.FieldOfView.UpDegrees,
			RightDegrees: e.FieldOfView.RightDegrees,
			DownDegrees:  e.FieldOfView.DownDegrees,
			LeftDegrees:  e.FieldOfView.LeftDegrees,
		},
		RenderWidth:  e.RenderWidth,
		RenderHeight: e.RenderHeight,
	}
}
