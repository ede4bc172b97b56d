// Package intersect implements the narrow phase for spheres.
//
// Two tests are provided. SphereSphereStatic only looks at the current
// positions. SphereSphereDynamic sweeps both spheres along their velocities
// over the step and reports the first instant they touch (time of impact),
// which lets the world resolve each contact at the moment it happens instead
// of at the end of the step.
//
// The swept test is a ray cast in the frame of sphere B: sphere A shrinks to a
// point travelling along the relative velocity, and B grows to the sum of both
// radii (a Minkowski sum of two spheres is a sphere).
package intersect

import (
	"math"

	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// ShortRayThreshold is the relative displacement over a step under which
	// motion is ignored and the static test is used instead.
	ShortRayThreshold = 1e-3

	// RadiusEpsilon widens the static fallback so resting contacts are kept.
	RadiusEpsilon = 1e-3
)

// Intersect runs the narrow phase for a pair of bodies over a step of dt.
// Only sphere/sphere pairs produce contacts; other shapes have no narrow phase.
// The returned contact has its body indices unset.
func Intersect(a, b *actor.RigidBody, dt float64) (constraint.Contact, bool) {
	switch a.Shape.(type) {
	case *actor.Sphere:
		if _, ok := b.Shape.(*actor.Sphere); ok {
			return SphereSphereDynamic(a, b, dt)
		}
	}

	return constraint.Contact{}, false
}

// RaySphere intersects the ray start + t*direction with a sphere.
// It returns both roots t0 <= t1 of a·t² - 2b·t + c = 0, in units of direction.
// A zero direction or a ray missing the sphere gives ok == false.
func RaySphere(start, direction, center mgl64.Vec3, radius float64) (t0, t1 float64, ok bool) {
	m := center.Sub(start)
	a := direction.Dot(direction)
	b := m.Dot(direction)
	c := m.Dot(m) - radius*radius

	if !(a > 0) {
		return 0, 0, false
	}

	delta := b*b - a*c
	if delta < 0 || math.IsNaN(delta) {
		return 0, 0, false
	}

	deltaRoot := math.Sqrt(delta)
	t0 = (b - deltaRoot) / a
	t1 = (b + deltaRoot) / a
	if !isFinite(t0) || !isFinite(t1) {
		return 0, 0, false
	}

	return t0, t1, true
}

// SphereSphereStatic tests two spheres at their current positions.
// The contact is reported with a zero time of impact.
func SphereSphereStatic(a, b *actor.RigidBody) (constraint.Contact, bool) {
	sphereA, okA := a.Shape.(*actor.Sphere)
	sphereB, okB := b.Shape.(*actor.Sphere)
	if !okA || !okB {
		return constraint.Contact{}, false
	}

	ab := b.Transform.Position.Sub(a.Transform.Position)
	radiusAB := sphereA.Radius + sphereB.Radius

	// We compare squares
	if ab.LenSqr() >= radiusAB*radiusAB {
		return constraint.Contact{}, false
	}

	return sphereContact(a, b, sphereA.Radius, sphereB.Radius, 0), true
}

// SphereSphereDynamic finds when, within [0, dt], two moving spheres first
// touch. Spheres already overlapping report a time of impact of 0. The bodies
// are left untouched: contact points are computed on advanced copies.
func SphereSphereDynamic(a, b *actor.RigidBody, dt float64) (constraint.Contact, bool) {
	sphereA, okA := a.Shape.(*actor.Sphere)
	sphereB, okB := b.Shape.(*actor.Sphere)
	if !okA || !okB {
		return constraint.Contact{}, false
	}

	posA := a.Transform.Position
	posB := b.Transform.Position
	radiusAB := sphereA.Radius + sphereB.Radius

	relativeVelocity := a.Velocity.Sub(b.Velocity)
	ray := relativeVelocity.Mul(dt)

	timeOfImpact := 0.0
	if ray.LenSqr() < ShortRayThreshold*ShortRayThreshold {
		// Barely moving: check for overlap, with a bit of slack
		ab := posB.Sub(posA)
		radius := radiusAB + RadiusEpsilon
		if ab.LenSqr() > radius*radius {
			return constraint.Contact{}, false
		}
	} else {
		t0, t1, ok := RaySphere(posA, ray, posB, radiusAB)
		if !ok {
			return constraint.Contact{}, false
		}

		// Roots are fractions of the ray, rescale them to seconds
		t0 *= dt
		t1 *= dt

		// The touch is behind us, or the spheres are leaving each other
		if t1 <= 0 {
			return constraint.Contact{}, false
		}

		timeOfImpact = math.Max(t0, 0)
		if timeOfImpact > dt {
			return constraint.Contact{}, false
		}
	}

	// Advance copies of both bodies to the contact time
	advancedA := *a
	advancedB := *b
	advancedA.Integrate(timeOfImpact)
	advancedB.Integrate(timeOfImpact)

	contact := sphereContact(&advancedA, &advancedB, sphereA.Radius, sphereB.Radius, timeOfImpact)
	if !isFinite(contact.SeparationDistance) {
		return constraint.Contact{}, false
	}

	return contact, true
}

// sphereContact builds the contact between two spheres at their current poses
func sphereContact(a, b *actor.RigidBody, radiusA, radiusB, timeOfImpact float64) constraint.Contact {
	ab := b.Transform.Position.Sub(a.Transform.Position)
	normal := actor.NormalizeOrZero(ab)

	pointA := a.Transform.Position.Add(normal.Mul(radiusA))
	pointB := b.Transform.Position.Sub(normal.Mul(radiusB))

	return constraint.Contact{
		PointOnAWorld:      pointA,
		PointOnBWorld:      pointB,
		PointOnALocal:      a.WorldToBodySpace(pointA),
		PointOnBLocal:      b.WorldToBodySpace(pointB),
		Normal:             normal,
		SeparationDistance: ab.Len() - (radiusA + radiusB),
		TimeOfImpact:       timeOfImpact,
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
