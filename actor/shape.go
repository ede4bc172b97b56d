package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeConvex
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	case ShapeTypeConvex:
		return "convex"
	default:
		return "unknown"
	}
}

// Shape is the closed set of collision shapes: *Sphere, *Box and *Convex.
//
// Inertia tensors are given for a unit mass; the owning body scales them by its
// inverse mass. A shape is immutable once built.
type Shape interface {
	Type() ShapeType
	// CenterOfMass in shape space
	CenterOfMass() mgl64.Vec3
	InertiaTensor() mgl64.Mat3
	// InverseInertiaTensor is zero when the tensor is singular
	InverseInertiaTensor() mgl64.Mat3
	// LocalBounds is the box in shape space, Bounds the world box at the given pose
	LocalBounds() AABB
	Bounds(transform Transform) AABB
	// Support returns the world point furthest along direction, pushed out by bias
	Support(direction mgl64.Vec3, transform Transform, bias float64) mgl64.Vec3
	// FastestLinearSpeed is the largest speed along direction that a point of the
	// shape reaches when spinning at angularVelocity about its center of mass
	FastestLinearSpeed(angularVelocity mgl64.Vec3, direction mgl64.Vec3) float64

	sealed()
}

// Sphere represents a spherical collision shape centered on the body origin
type Sphere struct {
	Radius float64
}

func NewSphere(radius float64) *Sphere {
	return &Sphere{Radius: radius}
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) CenterOfMass() mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (s *Sphere) InertiaTensor() mgl64.Mat3 {
	// Solid sphere: I = (2/5) * r²
	i := 2.0 * s.Radius * s.Radius / 5.0

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

// InverseInertiaTensor is exact for any radius: 5 / (2r²)
func (s *Sphere) InverseInertiaTensor() mgl64.Mat3 {
	if s.Radius == 0 {
		return mgl64.Mat3{}
	}
	i := 5.0 / (2.0 * s.Radius * s.Radius)

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) LocalBounds() AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{Min: r.Mul(-1), Max: r}
}

// Bounds is not affected by rotation, only by position
func (s *Sphere) Bounds(transform Transform) AABB {
	return s.LocalBounds().Translate(transform.Position)
}

func (s *Sphere) Support(direction mgl64.Vec3, transform Transform, bias float64) mgl64.Vec3 {
	return transform.Position.Add(NormalizeOrZero(direction).Mul(s.Radius + bias))
}

// FastestLinearSpeed is always zero: spinning a sphere never moves its surface outwards
func (s *Sphere) FastestLinearSpeed(angularVelocity mgl64.Vec3, direction mgl64.Vec3) float64 {
	return 0
}

func (s *Sphere) sealed() {}

// Box is the axis-aligned box, in shape space, bounding a set of points.
// It keeps its 8 corners so that rotated bounds and support points stay exact.
type Box struct {
	bounds       AABB
	corners      [8]mgl64.Vec3
	centerOfMass mgl64.Vec3
}

// NewBox builds the box bounding points
func NewBox(points ...mgl64.Vec3) *Box {
	b := &Box{}
	b.Build(points)

	return b
}

// Build recomputes the extent, corners and center of mass from points
func (b *Box) Build(points []mgl64.Vec3) {
	b.bounds = NewAABB(points...)
	b.corners = boundsCorners(b.bounds)
	b.centerOfMass = b.bounds.Center()
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Corners() [8]mgl64.Vec3 {
	return b.corners
}

func (b *Box) CenterOfMass() mgl64.Vec3 {
	return b.centerOfMass
}

func (b *Box) InertiaTensor() mgl64.Mat3 {
	return boundsInertia(b.bounds)
}

func (b *Box) InverseInertiaTensor() mgl64.Mat3 {
	return invertInertia(boundsInertia(b.bounds))
}

func (b *Box) LocalBounds() AABB {
	return b.bounds
}

func (b *Box) Bounds(transform Transform) AABB {
	return pointsBounds(b.corners[:], transform)
}

func (b *Box) Support(direction mgl64.Vec3, transform Transform, bias float64) mgl64.Vec3 {
	return pointsSupport(b.corners[:], direction, transform, bias)
}

func (b *Box) FastestLinearSpeed(angularVelocity mgl64.Vec3, direction mgl64.Vec3) float64 {
	return pointsFastestSpeed(b.corners[:], b.centerOfMass, angularVelocity, direction)
}

func (b *Box) sealed() {}

// Convex is a point cloud standing in for a convex hull. Its inertia is
// approximated by the one of its bounding box.
type Convex struct {
	points       []mgl64.Vec3
	bounds       AABB
	centerOfMass mgl64.Vec3
}

func NewConvex(points ...mgl64.Vec3) *Convex {
	c := &Convex{}
	c.Build(points)

	return c
}

// Build copies points and derives the bounds and center of mass (the point average)
func (c *Convex) Build(points []mgl64.Vec3) {
	c.points = append(c.points[:0], points...)
	c.bounds = NewAABB(points...)
	c.centerOfMass = mgl64.Vec3{}
	if len(points) == 0 {
		return
	}

	for _, point := range points {
		c.centerOfMass = c.centerOfMass.Add(point)
	}
	c.centerOfMass = c.centerOfMass.Mul(1.0 / float64(len(points)))
}

func (c *Convex) Type() ShapeType { return ShapeTypeConvex }

func (c *Convex) Points() []mgl64.Vec3 {
	return c.points
}

func (c *Convex) CenterOfMass() mgl64.Vec3 {
	return c.centerOfMass
}

func (c *Convex) InertiaTensor() mgl64.Mat3 {
	return boundsInertia(c.bounds)
}

func (c *Convex) InverseInertiaTensor() mgl64.Mat3 {
	return invertInertia(boundsInertia(c.bounds))
}

func (c *Convex) LocalBounds() AABB {
	return c.bounds
}

func (c *Convex) Bounds(transform Transform) AABB {
	if len(c.points) == 0 {
		return AABB{Min: transform.Position, Max: transform.Position}
	}

	return pointsBounds(c.points, transform)
}

func (c *Convex) Support(direction mgl64.Vec3, transform Transform, bias float64) mgl64.Vec3 {
	if len(c.points) == 0 {
		return transform.Position
	}

	return pointsSupport(c.points, direction, transform, bias)
}

func (c *Convex) FastestLinearSpeed(angularVelocity mgl64.Vec3, direction mgl64.Vec3) float64 {
	return pointsFastestSpeed(c.points, c.centerOfMass, angularVelocity, direction)
}

func (c *Convex) sealed() {}

func boundsCorners(b AABB) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
	}
}

// boundsInertia is the unit-mass tensor of a solid box filling b, taken about
// the shape origin rather than the box centroid.
func boundsInertia(b AABB) mgl64.Mat3 {
	d := b.Size()

	// Rectangular solid about its centroid: I = (1/12) * (dimension1² + dimension2²)
	tensor := mgl64.Diag3(mgl64.Vec3{
		(d.Y()*d.Y() + d.Z()*d.Z()) / 12.0,
		(d.X()*d.X() + d.Z()*d.Z()) / 12.0,
		(d.X()*d.X() + d.Y()*d.Y()) / 12.0,
	})

	// Parallel axis theorem: I_origin = I_centroid + (R²·Id - R⊗R)
	r := b.Center().Mul(-1)
	r2 := r.LenSqr()
	parallelAxis := mgl64.Mat3{
		r2 - r.X()*r.X(), -r.X() * r.Y(), -r.X() * r.Z(),
		-r.Y() * r.X(), r2 - r.Y()*r.Y(), -r.Y() * r.Z(),
		-r.Z() * r.X(), -r.Z() * r.Y(), r2 - r.Z()*r.Z(),
	}

	return tensor.Add(parallelAxis)
}

// invertInertia inverts through the adjugate. Unlike Mat3.Inv, only an exactly
// singular (or non-finite) tensor gives the zero matrix, so tiny shapes still spin.
func invertInertia(m mgl64.Mat3) mgl64.Mat3 {
	c0, c1, c2 := m.Col(0), m.Col(1), m.Col(2)
	r0 := c1.Cross(c2)
	det := c0.Dot(r0)
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return mgl64.Mat3{}
	}

	return mgl64.Mat3FromRows(r0, c2.Cross(c0), c0.Cross(c1)).Mul(1 / det)
}

func pointsBounds(points []mgl64.Vec3, transform Transform) AABB {
	worldPoint := transform.TransformPoint(points[0])
	aabb := AABB{Min: worldPoint, Max: worldPoint}

	for _, point := range points[1:] {
		aabb = aabb.Expand(transform.TransformPoint(point))
	}

	return aabb
}

func pointsSupport(points []mgl64.Vec3, direction mgl64.Vec3, transform Transform, bias float64) mgl64.Vec3 {
	// Find the point in the furthest direction
	best := transform.TransformPoint(points[0])
	bestDist := direction.Dot(best)

	for _, point := range points[1:] {
		worldPoint := transform.TransformPoint(point)
		if dist := direction.Dot(worldPoint); dist > bestDist {
			bestDist = dist
			best = worldPoint
		}
	}

	return best.Add(NormalizeOrZero(direction).Mul(bias))
}

func pointsFastestSpeed(points []mgl64.Vec3, centerOfMass, angularVelocity, direction mgl64.Vec3) float64 {
	maxSpeed := 0.0
	for _, point := range points {
		r := point.Sub(centerOfMass)
		speed := direction.Dot(angularVelocity.Cross(r))
		maxSpeed = math.Max(maxSpeed, speed)
	}

	return maxSpeed
}
