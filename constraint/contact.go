package constraint

import (
	"github.com/akmonengine/boule/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// minEffectiveMass is the smallest impulse denominator still worth resolving
const minEffectiveMass = 1e-10

// Contact is a touch, predicted or already overlapping, between two bodies of
// a World. BodyA and BodyB index the body slice the contact was built from and
// are only valid during the step that produced the contact.
type Contact struct {
	BodyA int
	BodyB int

	PointOnAWorld mgl64.Vec3
	PointOnBWorld mgl64.Vec3
	PointOnALocal mgl64.Vec3
	PointOnBLocal mgl64.Vec3

	// Normal points from A toward B
	Normal mgl64.Vec3
	// SeparationDistance is negative when the shapes overlap
	SeparationDistance float64
	// TimeOfImpact is 0 for shapes that already overlap at the start of the step
	TimeOfImpact float64
}

// IsPenetrating reports whether the bodies already overlapped before moving
func (c *Contact) IsPenetrating() bool {
	return c.TimeOfImpact == 0
}

// Resolve applies the restitution and friction impulses of the contact to
// bodyA and bodyB, which must already be at the contact time. Overlapping
// bodies are also pushed apart, in proportion to their inverse masses.
func (c *Contact) Resolve(bodyA, bodyB *actor.RigidBody) {
	invMassA := bodyA.InverseMass
	invMassB := bodyB.InverseMass
	if invMassA+invMassB == 0 {
		return
	}

	n := c.Normal
	pointA := c.PointOnAWorld
	pointB := c.PointOnBWorld

	IA_inv := bodyA.InverseInertiaTensorWorldSpace()
	IB_inv := bodyB.InverseInertiaTensorWorldSpace()
	rA := pointA.Sub(bodyA.CenterOfMassWorld())
	rB := pointB.Sub(bodyB.CenterOfMassWorld())

	// ========== Velocities ==========
	velA := bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(rA))
	velB := bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rB))
	velAB := velA.Sub(velB)
	normalVel := velAB.Dot(n)

	// Separating bodies never receive an attractive impulse
	if normalVel > 0 {
		// ========== NORMAL IMPULSE (restitution) ==========
		elasticity := CombineElasticity(bodyA.Material, bodyB.Material)
		angularFactor := angularEffectiveMass(IA_inv, rA, n) + angularEffectiveMass(IB_inv, rB, n)
		effectiveMassNormal := invMassA + invMassB + angularFactor

		if effectiveMassNormal > minEffectiveMass {
			j := (1.0 + elasticity) * normalVel / effectiveMassNormal
			impulse := n.Mul(j)

			bodyA.ApplyImpulse(pointA, impulse.Mul(-1))
			bodyB.ApplyImpulse(pointB, impulse)
		}

		// ========== TANGENTIAL IMPULSE (friction) ==========
		tangentVel := velAB.Sub(n.Mul(normalVel))
		tangentDir := actor.NormalizeOrZero(tangentVel)

		if tangentDir != (mgl64.Vec3{}) {
			angularTangent := angularEffectiveMass(IA_inv, rA, tangentDir) + angularEffectiveMass(IB_inv, rB, tangentDir)
			effectiveMassTangent := invMassA + invMassB + angularTangent

			if effectiveMassTangent > minEffectiveMass {
				friction := CombineFriction(bodyA.Material, bodyB.Material)
				frictionImpulse := tangentVel.Mul(friction / effectiveMassTangent)

				bodyA.ApplyImpulse(pointA, frictionImpulse.Mul(-1))
				bodyB.ApplyImpulse(pointB, frictionImpulse)
			}
		}
	}

	// ========== POSITIONAL CORRECTION ==========
	if c.IsPenetrating() {
		ta := invMassA / (invMassA + invMassB)
		tb := invMassB / (invMassA + invMassB)
		d := pointB.Sub(pointA)

		bodyA.Transform.Position = bodyA.Transform.Position.Add(d.Mul(ta))
		bodyB.Transform.Position = bodyB.Transform.Position.Sub(d.Mul(tb))
	}
}

// angularEffectiveMass is the share of the impulse denominator along dir that
// comes from spinning the body about its center of mass: ((I⁻¹ (r × dir)) × r) · dir
func angularEffectiveMass(inverseInertia mgl64.Mat3, r, dir mgl64.Vec3) float64 {
	return inverseInertia.Mul3x1(r.Cross(dir)).Cross(r).Dot(dir)
}
