package boule

import (
	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/constraint"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type pairKey struct {
	bodyA int
	bodyB int
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB int) pairKey {
	if bodyB < bodyA {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Collision events carry the indices of both bodies in World.Bodies, lowest first

type CollisionEnterEvent struct {
	BodyA int
	BodyB int
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA int
	BodyB int
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA int
	BodyB int
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body int
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body int
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager. The zero value is ready to use.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool

	sleepStates map[int]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		sleepStates:         make(map[int]bool),
	}
}

func (e *Events) init() {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	if e.previousActivePairs == nil {
		e.previousActivePairs = make(map[pairKey]bool)
	}
	if e.currentActivePairs == nil {
		e.currentActivePairs = make(map[pairKey]bool)
	}
	if e.sleepStates == nil {
		e.sleepStates = make(map[int]bool)
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.init()
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContacts marks the pair of every contact found this step as active
func (e *Events) recordContacts(contacts []constraint.Contact) {
	e.init()
	for _, c := range contacts {
		e.currentActivePairs[makePairKey(c.BodyA, c.BodyB)] = true
	}
}

// keepPair carries a pair over to this step if it was active, for pairs the
// narrow phase skipped because neither body moves
func (e *Events) keepPair(bodyA, bodyB int) {
	e.init()
	pair := makePairKey(bodyA, bodyB)
	if e.previousActivePairs[pair] {
		e.currentActivePairs[pair] = true
	}
}

// reset forgets every tracked pair and sleep state, once body indices have shifted
func (e *Events) reset() {
	clear(e.previousActivePairs)
	clear(e.currentActivePairs)
	clear(e.sleepStates)
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
func (e *Events) processCollisionEvents(bodies []actor.RigidBody) {
	// Detect Enter and Stay events
	for pair := range e.currentActivePairs {
		if e.previousActivePairs[pair] {
			// Skip if both bodies are sleeping, to avoid spamming events
			if bodies[pair.bodyA].IsSleeping && bodies[pair.bodyB].IsSleeping {
				continue
			}
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Detect Exit events
	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(bodies []actor.RigidBody) {
	e.init()
	for i := range bodies {
		body := &bodies[i]
		trackedState, exists := e.sleepStates[i]
		if !exists {
			e.sleepStates[i] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: i})
			e.sleepStates[i] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: i})
			e.sleepStates[i] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush(bodies []actor.RigidBody) {
	e.init()
	e.processCollisionEvents(bodies)

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
