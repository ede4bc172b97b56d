package boule

import (
	"math"
	"sort"

	"github.com/akmonengine/boule/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// BroadphaseEpsilon inflates every swept bounds so touching bodies stay paired
const BroadphaseEpsilon = 0.01

// CollisionPair represents a pair of rigid bodies that potentially collide,
// as indices into the body slice given to the broadphase
type CollisionPair struct {
	A int
	B int
}

// Broadphase prunes the body list down to the pairs whose swept bounds may overlap during dt.
// It must never miss a pair whose swept bounds overlap; false positives are allowed.
type Broadphase interface {
	FindPairs(bodies []actor.RigidBody, dt float64) []CollisionPair
}

// SweptBounds returns the bounds covering the body at the start and at the end
// of a linear move over dt, inflated by BroadphaseEpsilon
func SweptBounds(body *actor.RigidBody, dt float64) actor.AABB {
	bounds := body.Shape.Bounds(body.Transform)
	swept := bounds.Union(bounds.Translate(body.Velocity.Mul(dt)))

	return swept.Inflate(BroadphaseEpsilon)
}

// ============================================================================
// Sweep and prune
// ============================================================================

type endpoint struct {
	value     float64
	bodyIndex int
	isMin     bool
}

// SweepAndPrune projects swept bounds on a single axis, sorts the interval
// endpoints, and pairs every interval with those starting inside it.
// Endpoints are rebuilt on each call; the buffer is reused.
type SweepAndPrune struct {
	Axis mgl64.Vec3

	endpoints []endpoint
}

// NewSweepAndPrune creates a sweep along the (1,1,1) diagonal
func NewSweepAndPrune() *SweepAndPrune {
	return &SweepAndPrune{Axis: mgl64.Vec3{1, 1, 1}.Normalize()}
}

func (sap *SweepAndPrune) FindPairs(bodies []actor.RigidBody, dt float64) []CollisionPair {
	axis := actor.NormalizeOrZero(sap.Axis)
	if axis == (mgl64.Vec3{}) {
		axis = mgl64.Vec3{1, 1, 1}.Normalize()
	}

	// ========== ENDPOINTS ==========
	sap.endpoints = sap.endpoints[:0]
	for i := range bodies {
		lo, hi := SweptBounds(&bodies[i], dt).Project(axis)
		sap.endpoints = append(sap.endpoints,
			endpoint{value: lo, bodyIndex: i, isMin: true},
			endpoint{value: hi, bodyIndex: i, isMin: false},
		)
	}

	// A min sorts before a max of the same value, so touching intervals overlap
	sort.SliceStable(sap.endpoints, func(i, j int) bool {
		a, b := sap.endpoints[i], sap.endpoints[j]
		if a.value != b.value {
			return a.value < b.value
		}
		return a.isMin && !b.isMin
	})

	// ========== SWEEP ==========
	pairs := make([]CollisionPair, 0, len(bodies))
	for i, start := range sap.endpoints {
		if !start.isMin {
			continue
		}

		for _, other := range sap.endpoints[i+1:] {
			if other.bodyIndex == start.bodyIndex {
				break
			}
			if other.isMin {
				pairs = append(pairs, CollisionPair{A: start.bodyIndex, B: other.bodyIndex})
			}
		}
	}

	return pairs
}

// BruteForce tests the swept bounds of every pair on all three axes
type BruteForce struct{}

func (BruteForce) FindPairs(bodies []actor.RigidBody, dt float64) []CollisionPair {
	bounds := make([]actor.AABB, len(bodies))
	for i := range bodies {
		bounds[i] = SweptBounds(&bodies[i], dt)
	}

	pairs := make([]CollisionPair, 0, len(bodies))
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if bounds[i].Overlaps(bounds[j]) {
				pairs = append(pairs, CollisionPair{A: i, B: j})
			}
		}
	}

	return pairs
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
