// Package boule advances a set of rigid bodies through time.
//
// Each Step applies gravity, finds the pairs that may touch during the frame,
// predicts when they touch, and resolves the contacts one at a time in order
// of their time of impact, advancing every body up to each contact first.
package boule

import (
	"slices"

	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/constraint"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

type World struct {
	// List of all rigid bodies in the world; pairs and contacts refer to them by index
	Bodies []actor.RigidBody
	// Gravity acceleration (m/s², or N/kg)
	Gravity mgl64.Vec3
	// Broadphase defaults to a SweepAndPrune along (1,1,1)
	Broadphase Broadphase

	// Bodies slower than SleepVelocity (linear and angular) for SleepTime
	// seconds fall asleep. Zero disables sleeping.
	SleepVelocity float64
	SleepTime     float64

	// Logger receives step diagnostics when set
	Logger *log.Logger

	Events Events
}

// NewWorld creates an empty world with the default broadphase
func NewWorld(gravity mgl64.Vec3) *World {
	return &World{
		Gravity:    gravity,
		Broadphase: NewSweepAndPrune(),
		Events:     NewEvents(),
	}
}

// AddBody adds a rigid body to the world and returns its index
func (w *World) AddBody(body actor.RigidBody) int {
	w.Bodies = append(w.Bodies, body)

	return len(w.Bodies) - 1
}

// Body returns the body at index i, or nil when out of range
func (w *World) Body(i int) *actor.RigidBody {
	if i < 0 || i >= len(w.Bodies) {
		return nil
	}

	return &w.Bodies[i]
}

// RemoveBody removes the body at index i. Bodies after it shift down by one,
// so the event tracking of pairs and sleep states starts over. The freed slot
// is zeroed so the removed shape is not kept alive.
func (w *World) RemoveBody(i int) {
	if i < 0 || i >= len(w.Bodies) {
		return
	}

	w.Bodies = slices.Delete(w.Bodies, i, i+1)
	w.Events.reset()
}

// Step advances the world by dt seconds. A non-positive dt does nothing.
func (w *World) Step(dt float64) {
	if !(dt > 0) || !isFinite(dt) {
		return
	}

	// Phase 1: gravity
	w.applyForces(dt)

	// Phase 2.0: Collision pair finding - Broad phase
	pairs := w.broadphase().FindPairs(w.Bodies, dt)

	// Phase 2.1: Collision pair finding - narrow phase
	contacts := NarrowPhase(w.Bodies, pairs, dt, func(pair CollisionPair) {
		w.Events.keepPair(pair.A, pair.B)
	})
	SortContacts(contacts)
	w.Events.recordContacts(contacts)
	w.debug("collision detection", "pairs", len(pairs), "contacts", len(contacts))

	// Phase 3: resolve each contact at its own time
	accumulated := w.resolve(contacts)

	// Phase 4: the rest of the frame
	if remaining := dt - accumulated; remaining > 0 {
		w.integrate(remaining)
	}

	w.trySleep(dt)
	w.checkFinite()

	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush(w.Bodies)
}

// Step advances bodies by dt with no sleeping or events, for callers keeping
// their own body collection
func Step(bodies []actor.RigidBody, dt float64, gravity mgl64.Vec3) {
	w := World{Bodies: bodies, Gravity: gravity}
	w.Step(dt)
}

func (w *World) broadphase() Broadphase {
	if w.Broadphase == nil {
		w.Broadphase = NewSweepAndPrune()
	}

	return w.Broadphase
}

// applyForces gives every moving body the gravity impulse of the frame
func (w *World) applyForces(dt float64) {
	for i := range w.Bodies {
		body := &w.Bodies[i]
		if !isActive(body) {
			continue
		}

		body.ApplyImpulseLinear(w.Gravity.Mul(body.GetMass() * dt))
	}
}

// resolve advances all bodies to each contact in turn and resolves it.
// It returns the time already integrated.
func (w *World) resolve(contacts []constraint.Contact) float64 {
	accumulated := 0.0

	for i := range contacts {
		contact := &contacts[i]
		bodyA := &w.Bodies[contact.BodyA]
		bodyB := &w.Bodies[contact.BodyB]

		if bodyA.IsStatic() && bodyB.IsStatic() {
			continue
		}

		if dt := contact.TimeOfImpact - accumulated; dt > 0 {
			w.integrate(dt)
			accumulated += dt
		}

		contact.Resolve(bodyA, bodyB)
		w.debug("contact resolved",
			"a", contact.BodyA,
			"b", contact.BodyB,
			"toi", contact.TimeOfImpact,
			"separation", contact.SeparationDistance,
		)
	}

	return accumulated
}

func (w *World) integrate(dt float64) {
	for i := range w.Bodies {
		w.Bodies[i].Integrate(dt)
	}
}

// trySleep sets the body to sleep if its velocity is lower than the threshold, for a given duration
func (w *World) trySleep(dt float64) {
	if w.SleepVelocity <= 0 {
		return
	}

	for i := range w.Bodies {
		w.Bodies[i].TrySleep(dt, w.SleepTime, w.SleepVelocity)
	}
}

func (w *World) checkFinite() {
	if w.Logger == nil {
		return
	}

	for i := range w.Bodies {
		if !w.Bodies[i].IsFinite() {
			w.Logger.Warn("non-finite body state", "body", i, "position", w.Bodies[i].Transform.Position)
		}
	}
}

func (w *World) debug(msg string, keyvals ...interface{}) {
	if w.Logger != nil {
		w.Logger.Debug(msg, keyvals...)
	}
}
