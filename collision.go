package boule

import (
	"sort"

	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/constraint"
	"github.com/akmonengine/boule/intersect"
)

// isActive reports whether a body can move on its own during a step
func isActive(body *actor.RigidBody) bool {
	return !body.IsStatic() && !body.IsSleeping
}

// NarrowPhase runs the swept narrow phase on every candidate pair and returns
// the contacts expected within dt, with their body indices set. Pairs where
// neither body is active are skipped; skip, when non-nil, is told about them.
func NarrowPhase(bodies []actor.RigidBody, pairs []CollisionPair, dt float64, skip func(pair CollisionPair)) []constraint.Contact {
	contacts := make([]constraint.Contact, 0, len(pairs))

	for _, pair := range pairs {
		bodyA := &bodies[pair.A]
		bodyB := &bodies[pair.B]

		if !isActive(bodyA) && !isActive(bodyB) {
			if skip != nil {
				skip(pair)
			}
			continue
		}

		contact, ok := intersect.Intersect(bodyA, bodyB, dt)
		if !ok {
			continue
		}
		contact.BodyA = pair.A
		contact.BodyB = pair.B

		contacts = append(contacts, contact)
	}

	return contacts
}

// SortContacts orders contacts by ascending time of impact, keeping the
// broadphase order between equal times
func SortContacts(contacts []constraint.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].TimeOfImpact < contacts[j].TimeOfImpact
	})
}
