package boule

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/constraint"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func vec3AlmostEqual(a, b mgl64.Vec3, epsilon float64) bool {
	return almostEqual(a.X(), b.X(), epsilon) &&
		almostEqual(a.Y(), b.Y(), epsilon) &&
		almostEqual(a.Z(), b.Z(), epsilon)
}

func withMaterial(rb actor.RigidBody, elasticity, friction float64) actor.RigidBody {
	rb.Material = actor.Material{Elasticity: elasticity, Friction: friction}

	return rb
}

// groundWorld builds a unit sphere resting on a huge static sphere
func groundWorld() *World {
	world := NewWorld(mgl64.Vec3{0, 0, -10})
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{0, 0, -1000}, mgl64.Vec3{}, 1000, 0), 0.99, 0.5))
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{}, 1, 1), 0, 0.5))

	return world
}

func totalMomentum(bodies []actor.RigidBody) mgl64.Vec3 {
	total := mgl64.Vec3{}
	for i := range bodies {
		total = total.Add(bodies[i].LinearMomentum())
	}

	return total
}

// =============================================================================
// Body management
// =============================================================================

func TestWorld_AddRemoveBody(t *testing.T) {
	world := NewWorld(mgl64.Vec3{})

	first := world.AddBody(createSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 1, 1))
	second := world.AddBody(createSphereBody(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{}, 1, 1))
	third := world.AddBody(createSphereBody(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{}, 1, 1))

	if first != 0 || second != 1 || third != 2 {
		t.Fatalf("AddBody() indices = %d, %d, %d", first, second, third)
	}
	if world.Body(3) != nil || world.Body(-1) != nil {
		t.Error("Body() out of range should be nil")
	}

	world.RemoveBody(second)

	if len(world.Bodies) != 2 {
		t.Fatalf("len(Bodies) = %d, want 2", len(world.Bodies))
	}
	if got := world.Body(1).Transform.Position; got != (mgl64.Vec3{10, 0, 0}) {
		t.Errorf("Body(1) position = %v, want the third body", got)
	}

	// Out of range does nothing
	world.RemoveBody(7)
	if len(world.Bodies) != 2 {
		t.Errorf("len(Bodies) = %d after removing out of range", len(world.Bodies))
	}
}

func TestWorld_RemoveBody_ReleasesShape(t *testing.T) {
	world := NewWorld(mgl64.Vec3{})
	world.AddBody(createSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 1, 1))
	world.AddBody(createSphereBody(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{}, 1, 1))

	world.RemoveBody(1)

	// The slot past the end still belongs to the backing array
	freed := world.Bodies[:2][1]
	if freed.Shape != nil {
		t.Errorf("freed slot still holds shape %#v", freed.Shape)
	}

	world.RemoveBody(0)
	if freed := world.Bodies[:1][0]; freed.Shape != nil {
		t.Errorf("freed slot still holds shape %#v", freed.Shape)
	}
}

func TestWorld_StepNonPositiveDt(t *testing.T) {
	for _, dt := range []float64{0, -1, math.NaN()} {
		world := NewWorld(mgl64.Vec3{0, 0, -10})
		world.AddBody(createSphereBody(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{1, 0, 0}, 1, 1))

		world.Step(dt)

		body := world.Body(0)
		if body.Transform.Position != (mgl64.Vec3{0, 0, 5}) || body.Velocity != (mgl64.Vec3{1, 0, 0}) {
			t.Errorf("dt=%v changed the body: %v / %v", dt, body.Transform.Position, body.Velocity)
		}
	}
}

// =============================================================================
// Free motion
// =============================================================================

func TestWorld_FreeFall(t *testing.T) {
	world := NewWorld(mgl64.Vec3{0, 0, -10})
	world.AddBody(createSphereBody(mgl64.Vec3{0, 0, 100}, mgl64.Vec3{}, 1, 1))
	world.AddBody(createSphereBody(mgl64.Vec3{50, 0, 0}, mgl64.Vec3{}, 1, 0))

	const dt = 0.1
	for range 10 {
		world.Step(dt)
	}

	// Semi-implicit Euler: v_n = -g n dt, z_n = z_0 - g dt² n(n+1)/2
	if !almostEqual(world.Body(0).Velocity.Z(), -10, 1e-9) {
		t.Errorf("velocity = %v, want -10", world.Body(0).Velocity.Z())
	}
	if !almostEqual(world.Body(0).Transform.Position.Z(), 100-5.5, 1e-9) {
		t.Errorf("height = %v, want 94.5", world.Body(0).Transform.Position.Z())
	}
	// Static bodies ignore gravity
	if world.Body(1).Velocity != (mgl64.Vec3{}) || world.Body(1).Transform.Position != (mgl64.Vec3{50, 0, 0}) {
		t.Errorf("static body moved: %v / %v", world.Body(1).Transform.Position, world.Body(1).Velocity)
	}
}

func TestStep_PackageLevel(t *testing.T) {
	bodies := []actor.RigidBody{
		createSphereBody(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{1, 0, 0}, 1, 1),
	}

	Step(bodies, 0.5, mgl64.Vec3{0, 0, -2})

	if !vec3AlmostEqual(bodies[0].Velocity, mgl64.Vec3{1, 0, -1}, 1e-12) {
		t.Errorf("velocity = %v, want (1, 0, -1)", bodies[0].Velocity)
	}
	if !vec3AlmostEqual(bodies[0].Transform.Position, mgl64.Vec3{0.5, 0, 9.5}, 1e-12) {
		t.Errorf("position = %v, want (0.5, 0, 9.5)", bodies[0].Transform.Position)
	}
}

// =============================================================================
// Collisions
// =============================================================================

func TestWorld_HeadOnElasticSwap(t *testing.T) {
	for _, broadphase := range []Broadphase{NewSweepAndPrune(), NewSpatialGrid(2, 256), BruteForce{}} {
		world := NewWorld(mgl64.Vec3{})
		world.Broadphase = broadphase
		world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{1, 0, 0}, 1, 1), 1, 0))
		world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{-1, 0, 0}, 1, 1), 1, 0))

		// Contact at t=1, then half a second apart
		world.Step(1.5)

		a, b := world.Body(0), world.Body(1)
		if !vec3AlmostEqual(a.Velocity, mgl64.Vec3{-1, 0, 0}, 1e-9) || !vec3AlmostEqual(b.Velocity, mgl64.Vec3{1, 0, 0}, 1e-9) {
			t.Errorf("%T: velocities = %v / %v, want swapped", broadphase, a.Velocity, b.Velocity)
		}
		if !vec3AlmostEqual(a.Transform.Position, mgl64.Vec3{-1.5, 0, 0}, 1e-9) || !vec3AlmostEqual(b.Transform.Position, mgl64.Vec3{1.5, 0, 0}, 1e-9) {
			t.Errorf("%T: positions = %v / %v, want ±1.5", broadphase, a.Transform.Position, b.Transform.Position)
		}
	}
}

func TestWorld_NoTunneling(t *testing.T) {
	world := NewWorld(mgl64.Vec3{})
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{-100, 0, 0}, mgl64.Vec3{1000, 0, 0}, 1, 1), 1, 0))
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 1, 0), 1, 0))

	// One step would carry the bullet far past the wall
	world.Step(1)

	bullet := world.Body(0)
	if bullet.Velocity.X() >= 0 {
		t.Errorf("bullet velocity = %v, want bounced back", bullet.Velocity)
	}
	if bullet.Transform.Position.X() > -2 {
		t.Errorf("bullet position = %v, went through the wall", bullet.Transform.Position)
	}
}

func TestWorld_ContactsResolvedInTimeOrder(t *testing.T) {
	world := NewWorld(mgl64.Vec3{})
	elastic := func(position, velocity mgl64.Vec3) actor.RigidBody {
		return withMaterial(createSphereBody(position, velocity, 1, 1), 1, 0)
	}
	world.AddBody(elastic(mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{2, 0, 0}))
	world.AddBody(elastic(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}))
	world.AddBody(elastic(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}))

	before := totalMomentum(world.Bodies)

	// The striker reaches the row at t=0.5 and the impulse travels down the row
	for range 3 {
		world.Step(1)
	}

	if !vec3AlmostEqual(world.Body(0).Velocity, mgl64.Vec3{}, 1e-9) {
		t.Errorf("striker velocity = %v, want 0", world.Body(0).Velocity)
	}
	if !vec3AlmostEqual(world.Body(1).Velocity, mgl64.Vec3{}, 1e-9) {
		t.Errorf("middle velocity = %v, want 0", world.Body(1).Velocity)
	}
	if !vec3AlmostEqual(world.Body(2).Velocity, mgl64.Vec3{2, 0, 0}, 1e-9) {
		t.Errorf("last velocity = %v, want (2, 0, 0)", world.Body(2).Velocity)
	}
	if after := totalMomentum(world.Bodies); !vec3AlmostEqual(before, after, 1e-9) {
		t.Errorf("momentum before = %v, after = %v", before, after)
	}
}

func TestNarrowPhaseAndSortContacts(t *testing.T) {
	bodies := []actor.RigidBody{
		createSphereBody(mgl64.Vec3{-10, 0, 0}, mgl64.Vec3{16, 0, 0}, 1, 1),
		createSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 1, 1),
		createSphereBody(mgl64.Vec3{0, 0, 8}, mgl64.Vec3{0, 0, -20}, 1, 1),
		createSphereBody(mgl64.Vec3{30, 0, 0}, mgl64.Vec3{}, 1, 0),
		createSphereBody(mgl64.Vec3{31, 0, 0}, mgl64.Vec3{}, 1, 0),
	}
	pairs := BruteForce{}.FindPairs(bodies, 1)

	var skipped []CollisionPair
	contacts := NarrowPhase(bodies, pairs, 1, func(pair CollisionPair) {
		skipped = append(skipped, pair)
	})
	SortContacts(contacts)

	if len(contacts) != 2 {
		t.Fatalf("len(contacts) = %d, want 2: %+v", len(contacts), contacts)
	}
	// Body 2 drops onto the center sphere at 0.3, body 0 hits it at 0.5
	wantPairs := []CollisionPair{{A: 1, B: 2}, {A: 0, B: 1}}
	wantTOI := []float64{0.3, 0.5}
	for i, c := range contacts {
		if orderedPair(c.BodyA, c.BodyB) != wantPairs[i] {
			t.Errorf("contact %d between %d and %d, want %v", i, c.BodyA, c.BodyB, wantPairs[i])
		}
		if !almostEqual(c.TimeOfImpact, wantTOI[i], 1e-9) {
			t.Errorf("contact %d TimeOfImpact = %v, want %v", i, c.TimeOfImpact, wantTOI[i])
		}
	}
	// The two overlapping statics are never narrow-phased
	if len(skipped) != 1 || orderedPair(skipped[0].A, skipped[0].B) != (CollisionPair{A: 3, B: 4}) {
		t.Errorf("skipped = %v, want [{3 4}]", skipped)
	}
}

func TestSortContacts_Stable(t *testing.T) {
	contacts := []constraint.Contact{
		{BodyA: 0, TimeOfImpact: 0.3},
		{BodyA: 1, TimeOfImpact: 0.1},
		{BodyA: 2, TimeOfImpact: 0.3},
		{BodyA: 3, TimeOfImpact: 0},
		{BodyA: 4, TimeOfImpact: 0.1},
	}

	SortContacts(contacts)

	want := []int{3, 1, 4, 0, 2}
	for i, c := range contacts {
		if c.BodyA != want[i] {
			t.Errorf("position %d: body %d, want %d", i, c.BodyA, want[i])
		}
	}
}

// =============================================================================
// Resting contact
// =============================================================================

func TestWorld_RestingOnGround(t *testing.T) {
	world := groundWorld()

	const dt = 1.0 / 60.0
	for frame := 0; frame < 600; frame++ {
		world.Step(dt)
	}

	ball := world.Body(1)
	if !almostEqual(ball.Transform.Position.Z(), 1, 1e-3) {
		t.Errorf("ball height = %v, want 1", ball.Transform.Position.Z())
	}
	if ball.Velocity.Len() > 1e-3 {
		t.Errorf("ball velocity = %v, want at rest", ball.Velocity)
	}

	ground := world.Body(0)
	if ground.Transform.Position != (mgl64.Vec3{0, 0, -1000}) || ground.Velocity != (mgl64.Vec3{}) {
		t.Errorf("ground moved: %v / %v", ground.Transform.Position, ground.Velocity)
	}
}

func TestWorld_StaticInvariance(t *testing.T) {
	world := groundWorld()
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{3, 0, 10}, mgl64.Vec3{2, 1, 0}, 1, 0.05), 0, 0.5))
	world.AddBody(withMaterial(createSphereBody(mgl64.Vec3{-4, 2, 4}, mgl64.Vec3{0, -3, -20}, 0.5, 1), 0.4, 0.5))

	const dt = 1.0 / 60.0
	for range 300 {
		world.Step(dt)
	}

	ground := world.Body(0)
	if ground.Transform.Position != (mgl64.Vec3{0, 0, -1000}) {
		t.Errorf("ground position = %v", ground.Transform.Position)
	}
	if ground.Velocity != (mgl64.Vec3{}) || ground.AngularVelocity != (mgl64.Vec3{}) {
		t.Errorf("ground velocities = %v / %v", ground.Velocity, ground.AngularVelocity)
	}
	for i := range world.Bodies {
		if !world.Bodies[i].IsFinite() {
			t.Errorf("body %d is not finite", i)
		}
		// Nobody sinks into the ground
		if z := world.Bodies[i].Transform.Position.Z(); i > 0 && z < 0 {
			t.Errorf("body %d below ground: z = %v", i, z)
		}
	}
}

// =============================================================================
// Sleep
// =============================================================================

func TestWorld_Sleep(t *testing.T) {
	world := groundWorld()
	world.SleepVelocity = 0.05
	world.SleepTime = 0.1

	const dt = 1.0 / 60.0
	for range 30 {
		world.Step(dt)
	}

	ball := world.Body(1)
	if !ball.IsSleeping {
		t.Fatal("ball at rest should be sleeping")
	}
	height := ball.Transform.Position.Z()

	world.Step(dt)
	if ball.Transform.Position.Z() != height || ball.Velocity != (mgl64.Vec3{}) {
		t.Errorf("sleeping ball moved: z %v -> %v, v %v", height, ball.Transform.Position.Z(), ball.Velocity)
	}

	// A push wakes it up
	ball.ApplyImpulseLinear(mgl64.Vec3{0, 0, 5})
	if ball.IsSleeping {
		t.Error("impulse should wake the ball")
	}
	world.Step(dt)
	if ball.Transform.Position.Z() <= height {
		t.Errorf("woken ball should rise: z = %v", ball.Transform.Position.Z())
	}
}

func TestWorld_SleepDisabledByDefault(t *testing.T) {
	world := groundWorld()

	for range 60 {
		world.Step(1.0 / 60.0)
	}

	if world.Body(1).IsSleeping {
		t.Error("bodies must not sleep when SleepVelocity is zero")
	}
}

// =============================================================================
// Logging
// =============================================================================

func TestWorld_Logger(t *testing.T) {
	var buf bytes.Buffer
	world := groundWorld()
	world.Logger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	world.Step(1.0 / 60.0)

	out := buf.String()
	if !strings.Contains(out, "contact resolved") {
		t.Errorf("missing contact record in log output:\n%s", out)
	}
	if !strings.Contains(out, "collision detection") {
		t.Errorf("missing detection record in log output:\n%s", out)
	}

	buf.Reset()
	world.Body(1).Velocity = mgl64.Vec3{math.NaN(), 0, 0}
	world.Step(1.0 / 60.0)
	if !strings.Contains(buf.String(), "non-finite body state") {
		t.Errorf("missing warning for NaN velocity:\n%s", buf.String())
	}
}
