package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a pose in 3D space.
// Position is the body's reference point, which is not necessarily its center of mass.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// TransformPoint maps a point from shape space to world space
func (t Transform) TransformPoint(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(point).Add(t.Position)
}

// degenerateLength is the length under which a vector has no usable direction
const degenerateLength = 1e-12

// NormalizeOrZero returns v scaled to unit length, or the zero vector when v
// is too short to carry a direction.
func NormalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	length := v.Len()
	if length < degenerateLength || math.IsNaN(length) || math.IsInf(length, 0) {
		return mgl64.Vec3{}
	}

	return v.Mul(1.0 / length)
}

// RotationFromVector builds the rotation of angle |v| about the axis v.
// A vanishing v gives the identity.
func RotationFromVector(v mgl64.Vec3) mgl64.Quat {
	angle := v.Len()
	if angle < degenerateLength || math.IsNaN(angle) || math.IsInf(angle, 0) {
		return mgl64.QuatIdent()
	}

	return mgl64.QuatRotate(angle, v.Mul(1.0/angle))
}
