// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package mockvr

import (
	"math"

	"github.com/WhiteSymmetry/servo/vr"
)

// projectionMatrix builds a column-major off-axis perspective
// projection from per-edge field-of-view half angles and a depth
// range, mapping depth to the [-1, 1] clip convention.
func projectionMatrix(fov vr.FieldOfView, near, far float64) [16]float32 {
	upTan := math.Tan(fov.UpDegrees * math.Pi / 180)
	rightTan := math.Tan(fov.RightDegrees * math.Pi / 180)
	downTan := math.Tan(fov.DownDegrees * math.Pi / 180)
	leftTan := math.Tan(fov.LeftDegrees * math.Pi / 180)

	xScale := 2 / (leftTan + rightTan)
	yScale := 2 / (upTan + downTan)

	var m [16]float32
	m[0] = float32(xScale)
	m[5] = float32(yScale)
	m[8] = float32(-(leftTan - rightTan) * xScale * 0.5)
	m[9] = float32((upTan - downTan) * yScale * 0.5)
	m[10] = float32(-(far + near) / (far - near))
	m[11] = -1
	m[14] = float32(-(2 * far * near) / (far - near))
	return m
}

// viewMatrix builds the column-major world-to-eye transform for a head
// at position, rotated yaw radians about the Y axis, with the eye
// displaced from the head center by offset. The offset rotates with
// the head.
func viewMatrix(yaw float64, position, offset [3]float32) [16]float32 {
	sin, cos := math.Sin(yaw), math.Cos(yaw)

	// Inverse of T(position) * R_y(yaw) * T(offset).
	px, py, pz := float64(position[0]), float64(position[1]), float64(position[2])
	tx := -(cos*px - sin*pz) - float64(offset[0])
	ty := -py - float64(offset[1])
	tz := -(sin*px + cos*pz) - float64(offset[2])

	var m [16]float32
	m[0] = float32(cos)
	m[2] = float32(sin)
	m[5] = 1
	m[8] = float32(-sin)
	m[10] = float32(cos)
	m[12] = float32(tx)
	m[13] = float32(ty)
	m[14] = float32(tz)
	m[15] = 1
	return m
}

// yawQuaternion returns the x, y, z, w quaternion for a rotation of
// yaw radians about the Y axis.
func yawQuaternion(yaw float64) [4]float32 {
	half := yaw / 2
	return [4]float32{0, float32(math.Sin(half)), 0, float32(math.Cos(half))}
}
