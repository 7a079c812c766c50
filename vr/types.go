// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package vr

// DisplayData is the immutable-per-update snapshot of a display's state
// as reported by its driver. It is replaced wholesale on every device
// event, never partially mutated.
type DisplayData struct {
	// DisplayID is a stable identifier for the display, unique across
	// all drivers for the lifetime of the device service.
	DisplayID uint32 `cbor:"display_id"`

	// DisplayName is the human-readable device name (vendor + model).
	DisplayName string `cbor:"display_name"`

	// Connected reports whether the device is currently attached.
	Connected bool `cbor:"connected"`

	// Capabilities describes what the display hardware can do.
	Capabilities Capabilities `cbor:"capabilities"`

	// StageParameters describes the play area, if the device supports
	// room-scale tracking. Nil when the device is seated-only.
	StageParameters *StageParameters `cbor:"stage_parameters,omitempty"`

	// LeftEyeParameters and RightEyeParameters carry the per-eye
	// rendering setup (field of view, render target size, eye offset).
	LeftEyeParameters  EyeParameters `cbor:"left_eye_parameters"`
	RightEyeParameters EyeParameters `cbor:"right_eye_parameters"`
}

// Clone returns a deep copy of the display data. The copy shares no
// memory with the original.
func (d DisplayData) Clone() DisplayData {
	clone := d
	if d.StageParameters != nil {
		stage := *d.StageParameters
		clone.StageParameters = &stage
	}
	return clone
}

// Capabilities is the set of capability flags a display reports.
type Capabilities struct {
	// HasOrientation reports whether the device tracks rotation.
	HasOrientation bool `cbor:"has_orientation"`

	// HasPosition reports whether the device tracks translation.
	HasPosition bool `cbor:"has_position"`

	// HasExternalDisplay reports whether the device mirrors to an
	// external monitor.
	HasExternalDisplay bool `cbor:"has_external_display"`

	// CanPresent reports whether the device accepts presented frames.
	// RequestPresent on a display with CanPresent false always fails.
	CanPresent bool `cbor:"can_present"`
}

// StageParameters describes the room-scale play area.
type StageParameters struct {
	// SittingToStandingTransform converts from sitting-space to
	// standing-space coordinates. Column-major 4x4 matrix.
	SittingToStandingTransform [16]float32 `cbor:"sitting_to_standing_transform"`

	// SizeX and SizeZ are the play area extents in meters.
	SizeX float32 `cbor:"size_x"`
	SizeZ float32 `cbor:"size_z"`
}

// Eye selects one of the two per-eye parameter sets.
type Eye int

const (
	// EyeLeft selects the left eye.
	EyeLeft Eye = iota
	// EyeRight selects the right eye.
	EyeRight
)

// String returns "left" or "right".
func (e Eye) String() string {
	if e == EyeRight {
		return "right"
	}
	return "left"
}

// EyeParameters carries the rendering setup for one eye.
type EyeParameters struct {
	// Offset is the translation from the center point between the eyes
	// to this eye, in meters. Typically half the IPD on the X axis.
	Offset [3]float32 `cbor:"offset"`

	// FieldOfView is the per-edge view frustum in degrees.
	FieldOfView FieldOfView `cbor:"field_of_view"`

	// RenderWidth and RenderHeight are the recommended render target
	// dimensions for this eye, in pixels.
	RenderWidth  uint32 `cbor:"render_width"`
	RenderHeight uint32 `cbor:"render_height"`
}

// FieldOfView is a view frustum expressed as four half-angles in
// degrees, one per frustum edge.
type FieldOfView struct {
	UpDegrees    float64 `cbor:"up_degrees"`
	RightDegrees float64 `cbor:"right_degrees"`
	DownDegrees  float64 `cbor:"down_degrees"`
	LeftDegrees  float64 `cbor:"left_degrees"`
}

// Pose is a tracked head pose. Every field is optional: a device
// reports only the quantities its sensors produce. Orientation is a
// unit quaternion in x, y, z, w order; vectors are x, y, z in meters
// (or meters per second, per second squared for the derivatives).
type Pose struct {
	Orientation         *[4]float32 `cbor:"orientation,omitempty"`
	Position            *[3]float32 `cbor:"position,omitempty"`
	LinearVelocity      *[3]float32 `cbor:"linear_velocity,omitempty"`
	LinearAcceleration  *[3]float32 `cbor:"linear_acceleration,omitempty"`
	AngularVelocity     *[3]float32 `cbor:"angular_velocity,omitempty"`
	AngularAcceleration *[3]float32 `cbor:"angular_acceleration,omitempty"`
}

// Clone returns a deep copy of the pose.
func (p Pose) Clone() Pose {
	clone := Pose{}
	if p.Orientation != nil {
		v := *p.Orientation
		clone.Orientation = &v
	}
	clone.Position = cloneVec3(p.Position)
	clone.LinearVelocity = cloneVec3(p.LinearVelocity)
	clone.LinearAcceleration = cloneVec3(p.LinearAcceleration)
	clone.AngularVelocity = cloneVec3(p.AngularVelocity)
	clone.AngularAcceleration = cloneVec3(p.AngularAcceleration)
	return clone
}

func cloneVec3(v *[3]float32) *[3]float32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// FrameData is the latest pose and projection snapshot for one frame.
// It is overwritten wholesale on each successful fetch from the device
// service, never merged field by field.
type FrameData struct {
	// Timestamp is a monotonic frame counter maintained by the device.
	Timestamp uint64 `cbor:"timestamp"`

	// Projection and view matrices for each eye. Column-major 4x4.
	LeftProjectionMatrix  [16]float32 `cbor:"left_projection_matrix"`
	LeftViewMatrix        [16]float32 `cbor:"left_view_matrix"`
	RightProjectionMatrix [16]float32 `cbor:"right_projection_matrix"`
	RightViewMatrix       [16]float32 `cbor:"right_view_matrix"`

	// Pose is the head pose the matrices were derived from.
	Pose Pose `cbor:"pose"`
}

// NewFrameData returns frame data with all four matrices set to
// identity and an empty pose. This is the state of a session's cached
// frame data before the first successful fetch.
func NewFrameData() FrameData {
	return FrameData{
		LeftProjectionMatrix:  IdentityMatrix(),
		LeftViewMatrix:        IdentityMatrix(),
		RightProjectionMatrix: IdentityMatrix(),
		RightViewMatrix:       IdentityMatrix(),
	}
}

// Clone returns a deep copy of the frame data.
func (f FrameData) Clone() FrameData {
	clone := f
	clone.Pose = f.Pose.Clone()
	return clone
}

// IdentityMatrix returns a column-major 4x4 identity matrix.
func IdentityMatrix() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Layer is the single presentation layer a session submits frames
// through: the texture bounds for each eye within the source surface.
// Bounds are [x, y, width, height] in UV space (0..1).
type Layer struct {
	LeftBounds  [4]float32 `cbor:"left_bounds"`
	RightBounds [4]float32 `cbor:"right_bounds"`
}

// DefaultLayer returns a layer with the conventional side-by-side
// bounds: the left eye samples the left half of the surface and the
// right eye the right half.
func DefaultLayer() Layer {
	return Layer{
		LeftBounds:  [4]float32{0.0, 0.0, 0.5, 1.0},
		RightBounds: [4]float32{0.5, 0.0, 0.5, 1.0},
	}
}
