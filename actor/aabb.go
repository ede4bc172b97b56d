package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB returns the smallest box holding every given point.
// With no points the box is degenerate at the origin.
func NewAABB(points ...mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	aabb := AABB{Min: points[0], Max: points[0]}
	for _, point := range points[1:] {
		aabb = aabb.Expand(point)
	}

	return aabb
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Expand grows the box so that it holds point
func (a AABB) Expand(point mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], point[i])
		a.Max[i] = math.Max(a.Max[i], point[i])
	}

	return a
}

// Union returns the box holding both a and other
func (a AABB) Union(other AABB) AABB {
	return a.Expand(other.Min).Expand(other.Max)
}

// Inflate pushes every face outwards by margin
func (a AABB) Inflate(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}

	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Translate moves the box by offset
func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Project returns the interval covered by the box along axis.
// The axis does not need to be normalized; the result is scaled by its length.
func (a AABB) Project(axis mgl64.Vec3) (float64, float64) {
	var lo, hi float64
	for i := 0; i < 3; i++ {
		if axis[i] >= 0 {
			lo += axis[i] * a.Min[i]
			hi += axis[i] * a.Max[i]
		} else {
			lo += axis[i] * a.Max[i]
			hi += axis[i] * a.Min[i]
		}
	}

	return lo, hi
}
