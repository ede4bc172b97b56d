package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxAngularSpeed caps the spin (rad/s) a body may reach from an impulse
const MaxAngularSpeed = 30.0

// DefaultRadius is the sphere given to a body created without a shape
const DefaultRadius = 1e-3

type Material struct {
	Elasticity float64 // 0= no rebound, 1= perfect restitution
	Friction   float64 // 0= frictionless, 1= full tangential grip
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	Transform Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)
	// Angular motion
	AngularVelocity mgl64.Vec3 // rad/s

	// 0 means infinite mass: the body is static and ignores every impulse
	InverseMass float64
	Material    Material

	IsSleeping bool
	SleepTimer float64

	// Collision shape, owned by the body
	Shape Shape
}

// NewRigidBody creates a body at rest with the given inverse mass.
// A zero rotation in transform is replaced by the identity, and a nil shape by
// a sphere of radius DefaultRadius.
func NewRigidBody(transform Transform, shape Shape, inverseMass float64) RigidBody {
	transform.Rotation = transform.Rotation.Normalize()
	if shape == nil {
		shape = NewSphere(DefaultRadius)
	}

	return RigidBody{
		Transform:   transform,
		Shape:       shape,
		InverseMass: math.Max(inverseMass, 0),
	}
}

func (rb *RigidBody) IsStatic() bool {
	return rb.InverseMass == 0
}

// GetMass returns +Inf for static bodies
func (rb *RigidBody) GetMass() float64 {
	if rb.IsStatic() {
		return math.Inf(1)
	}

	return 1.0 / rb.InverseMass
}

func (rb *RigidBody) CenterOfMassBody() mgl64.Vec3 {
	return rb.Shape.CenterOfMass()
}

func (rb *RigidBody) CenterOfMassWorld() mgl64.Vec3 {
	return rb.Transform.TransformPoint(rb.Shape.CenterOfMass())
}

// WorldToBodySpace expresses a world point relative to the center of mass, in body axes
func (rb *RigidBody) WorldToBodySpace(worldPoint mgl64.Vec3) mgl64.Vec3 {
	relative := worldPoint.Sub(rb.CenterOfMassWorld())

	return rb.Transform.Rotation.Conjugate().Rotate(relative)
}

// BodyToWorldSpace is the inverse of WorldToBodySpace
func (rb *RigidBody) BodyToWorldSpace(bodyPoint mgl64.Vec3) mgl64.Vec3 {
	return rb.CenterOfMassWorld().Add(rb.Transform.Rotation.Rotate(bodyPoint))
}

func (rb *RigidBody) InverseInertiaTensorBodySpace() mgl64.Mat3 {
	if rb.IsStatic() {
		return mgl64.Mat3{}
	}

	return rb.Shape.InverseInertiaTensor().Mul(rb.InverseMass)
}

// InverseInertiaTensorWorldSpace returns R * I_body^(-1) * R^T
func (rb *RigidBody) InverseInertiaTensorWorldSpace() mgl64.Mat3 {
	if rb.IsStatic() {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaTensorBodySpace()).Mul3(R.Transpose())
}

// Integrate moves the body along its velocities for dt seconds.
// Rotation happens about the center of mass, so the reference point orbits it.
func (rb *RigidBody) Integrate(dt float64) {
	if rb.IsSleeping {
		return
	}

	// ========== LINEAR ==========
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	centerOfMass := rb.CenterOfMassWorld()
	comToPosition := rb.Transform.Position.Sub(centerOfMass)

	// ========== ANGULAR ==========
	// Gyroscopic term, precession of asymmetric bodies without external torque
	R := rb.Transform.Rotation.Mat4().Mat3()
	inertia := R.Mul3(rb.Shape.InertiaTensor()).Mul3(R.Transpose())
	inverseInertia := R.Mul3(rb.Shape.InverseInertiaTensor()).Mul3(R.Transpose())
	alpha := inverseInertia.Mul3x1(rb.AngularVelocity.Cross(inertia.Mul3x1(rb.AngularVelocity)))
	rb.AngularVelocity = rb.AngularVelocity.Add(alpha.Mul(dt))

	// ========== UPDATE QUATERNION ==========
	dq := RotationFromVector(rb.AngularVelocity.Mul(dt))
	rb.Transform.Rotation = dq.Mul(rb.Transform.Rotation).Normalize()

	rb.Transform.Position = centerOfMass.Add(dq.Rotate(comToPosition))
}

// ApplyImpulseLinear changes the linear momentum by impulse
func (rb *RigidBody) ApplyImpulseLinear(impulse mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}
	rb.wake(impulse)

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass))
}

// ApplyImpulseAngular changes the angular momentum by impulse, then caps the
// spin at MaxAngularSpeed
func (rb *RigidBody) ApplyImpulseAngular(impulse mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}
	rb.wake(impulse)

	rb.AngularVelocity = rb.AngularVelocity.Add(rb.InverseInertiaTensorWorldSpace().Mul3x1(impulse))

	if rb.AngularVelocity.LenSqr() > MaxAngularSpeed*MaxAngularSpeed {
		rb.AngularVelocity = NormalizeOrZero(rb.AngularVelocity).Mul(MaxAngularSpeed)
	}
}

// ApplyImpulse applies impulse at a world point, splitting it into its linear
// part and the torque of the lever arm from the center of mass
func (rb *RigidBody) ApplyImpulse(point mgl64.Vec3, impulse mgl64.Vec3) {
	if rb.IsStatic() {
		return
	}

	rb.ApplyImpulseLinear(impulse)

	r := point.Sub(rb.CenterOfMassWorld())
	rb.ApplyImpulseAngular(r.Cross(impulse))
}

// PointVelocity is the world velocity of the material point at worldPoint
func (rb *RigidBody) PointVelocity(worldPoint mgl64.Vec3) mgl64.Vec3 {
	r := worldPoint.Sub(rb.CenterOfMassWorld())

	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

func (rb *RigidBody) LinearMomentum() mgl64.Vec3 {
	if rb.IsStatic() {
		return mgl64.Vec3{}
	}

	return rb.Velocity.Mul(rb.GetMass())
}

// KineticEnergy sums the translational and rotational energies. Static bodies have none.
func (rb *RigidBody) KineticEnergy() float64 {
	if rb.IsStatic() {
		return 0
	}

	mass := rb.GetMass()
	R := rb.Transform.Rotation.Mat4().Mat3()
	inertia := R.Mul3(rb.Shape.InertiaTensor()).Mul3(R.Transpose()).Mul(mass)

	linear := 0.5 * mass * rb.Velocity.LenSqr()
	angular := 0.5 * rb.AngularVelocity.Dot(inertia.Mul3x1(rb.AngularVelocity))

	return linear + angular
}

// IsFinite reports whether the pose and velocities hold no NaN or Inf
func (rb *RigidBody) IsFinite() bool {
	values := [...]float64{
		rb.Transform.Position[0], rb.Transform.Position[1], rb.Transform.Position[2],
		rb.Transform.Rotation.W, rb.Transform.Rotation.V[0], rb.Transform.Rotation.V[1], rb.Transform.Rotation.V[2],
		rb.Velocity[0], rb.Velocity[1], rb.Velocity[2],
		rb.AngularVelocity[0], rb.AngularVelocity[1], rb.AngularVelocity[2],
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func (rb *RigidBody) TrySleep(dt float64, timeThreshold float64, velocityThreshold float64) {
	if rb.IsStatic() {
		return
	}

	if rb.Velocity.Len() < velocityThreshold && rb.AngularVelocity.Len() < velocityThreshold {
		rb.SleepTimer += dt
		if rb.SleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.Awake()
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

func (rb *RigidBody) wake(impulse mgl64.Vec3) {
	if rb.IsSleeping && impulse.LenSqr() > 0 {
		rb.Awake()
	}
}
