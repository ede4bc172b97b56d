// Package scene describes a World in YAML and builds it.
//
// A scene lists world settings and bodies. Bodies either spell out their
// shape and material or start from a preset (boule, cochonnet, earth) and
// override what they need:
//
//	gravity: [0, 0, -50]
//	broadphase:
//	  kind: sap
//	sleep:
//	  velocity: 0.3
//	  time: 0.5
//	bodies:
//	  - name: earth
//	    preset: earth
//	    position: [0, 0, -1000]
//	  - name: cochonnet
//	    preset: cochonnet
//	    position: [0, 30, 0.5]
package scene

import (
	"io"
	"math"
	"os"

	"github.com/akmonengine/boule"
	"github.com/akmonengine/boule/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultGravity is used when a scene gives none
var DefaultGravity = mgl64.Vec3{0, 0, -50}

const (
	BroadphaseSweepAndPrune = "sap"
	BroadphaseGrid          = "grid"
	BroadphaseBruteForce    = "brute"

	defaultCellSize = 4.0
	defaultCells    = 1024
)

type Scene struct {
	Gravity    *mgl64.Vec3 `yaml:"gravity"`
	Broadphase Broadphase  `yaml:"broadphase"`
	Sleep      Sleep       `yaml:"sleep"`
	Bodies     []Body      `yaml:"bodies"`
}

type Broadphase struct {
	// Kind is one of "sap" (default), "grid" or "brute"
	Kind string `yaml:"kind"`
	// Axis of the sweep and prune, (1,1,1) when unset
	Axis *mgl64.Vec3 `yaml:"axis"`
	// Grid settings
	CellSize float64 `yaml:"cellSize"`
	Cells    int     `yaml:"cells"`
}

type Sleep struct {
	Velocity float64 `yaml:"velocity"`
	Time     float64 `yaml:"time"`
}

type Shape struct {
	// Kind is one of "sphere", "box" or "convex"
	Kind   string       `yaml:"kind"`
	Radius float64      `yaml:"radius"`
	Points []mgl64.Vec3 `yaml:"points"`
}

// Rotation is an angle in radians about an axis
type Rotation struct {
	Axis  mgl64.Vec3 `yaml:"axis"`
	Angle float64    `yaml:"angle"`
}

type Body struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
	Shape  *Shape `yaml:"shape"`

	Position        mgl64.Vec3 `yaml:"position"`
	Rotation        *Rotation  `yaml:"rotation"`
	Velocity        mgl64.Vec3 `yaml:"velocity"`
	AngularVelocity mgl64.Vec3 `yaml:"angularVelocity"`

	// Unset values come from the preset, or default to 0
	InverseMass *float64 `yaml:"inverseMass"`
	Elasticity  *float64 `yaml:"elasticity"`
	Friction    *float64 `yaml:"friction"`
}

// Preset is a ready-made body kind
type Preset struct {
	Shape       Shape
	InverseMass float64
	Material    actor.Material
}

// Presets of the petanque game: a heavy dead boule, a light lively jack, and
// the ground as a huge static sphere
var Presets = map[string]Preset{
	"boule": {
		Shape:       Shape{Kind: "sphere", Radius: 5},
		InverseMass: 0.05,
		Material:    actor.Material{Elasticity: 0, Friction: 0.5},
	},
	"cochonnet": {
		Shape:       Shape{Kind: "sphere", Radius: 0.5},
		InverseMass: 1,
		Material:    actor.Material{Elasticity: 0.4, Friction: 0.5},
	},
	"earth": {
		Shape:       Shape{Kind: "sphere", Radius: 1000},
		InverseMass: 0,
		Material:    actor.Material{Elasticity: 0.99, Friction: 0.5},
	},
}

// Load reads and validates the scene file at path
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scene")
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	return s, nil
}

// Decode reads a scene from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Scene, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var s Scene
	if err := decoder.Decode(&s); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode scene")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the world settings and every body
func (s *Scene) Validate() error {
	if s.Gravity != nil && !finiteVec(*s.Gravity) {
		return errors.Errorf("gravity %v is not finite", *s.Gravity)
	}

	switch s.Broadphase.Kind {
	case "", BroadphaseSweepAndPrune, BroadphaseBruteForce:
	case BroadphaseGrid:
		if s.Broadphase.CellSize < 0 || s.Broadphase.Cells < 0 {
			return errors.Errorf("grid broadphase: negative cell size %v or cell count %d", s.Broadphase.CellSize, s.Broadphase.Cells)
		}
	default:
		return errors.Errorf("unknown broadphase %q", s.Broadphase.Kind)
	}

	if s.Sleep.Velocity < 0 || s.Sleep.Time < 0 {
		return errors.Errorf("sleep thresholds must not be negative")
	}

	names := make(map[string]bool, len(s.Bodies))
	for i := range s.Bodies {
		body := &s.Bodies[i]
		if err := body.Validate(); err != nil {
			return errors.Wrapf(err, "body %d (%s)", i, body.Name)
		}
		if body.Name != "" {
			if names[body.Name] {
				return errors.Errorf("body %d: duplicate name %q", i, body.Name)
			}
			names[body.Name] = true
		}
	}

	return nil
}

// Validate checks that the body resolves to a usable shape and material
func (b *Body) Validate() error {
	if b.Preset != "" {
		if _, ok := Presets[b.Preset]; !ok {
			return errors.Errorf("unknown preset %q", b.Preset)
		}
	} else if b.Shape == nil {
		return errors.New("needs a shape or a preset")
	}

	if b.Shape != nil {
		if err := b.Shape.Validate(); err != nil {
			return errors.Wrap(err, "shape")
		}
	}

	if !finiteVec(b.Position) || !finiteVec(b.Velocity) || !finiteVec(b.AngularVelocity) {
		return errors.New("position and velocities must be finite")
	}
	if b.Rotation != nil && b.Rotation.Angle != 0 && b.Rotation.Axis.Len() == 0 {
		return errors.New("rotation needs a non-zero axis")
	}
	if b.InverseMass != nil && !(*b.InverseMass >= 0) {
		return errors.Errorf("inverse mass %v must be >= 0", *b.InverseMass)
	}
	if b.Elasticity != nil && !unit(*b.Elasticity) {
		return errors.Errorf("elasticity %v out of [0, 1]", *b.Elasticity)
	}
	if b.Friction != nil && !unit(*b.Friction) {
		return errors.Errorf("friction %v out of [0, 1]", *b.Friction)
	}

	return nil
}

func (s *Shape) Validate() error {
	switch s.Kind {
	case "sphere":
		if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
			return errors.Errorf("sphere radius %v must be positive", s.Radius)
		}
	case "box", "convex":
		if len(s.Points) == 0 {
			return errors.Errorf("%s needs at least one point", s.Kind)
		}
		for _, p := range s.Points {
			if !finiteVec(p) {
				return errors.Errorf("%s point %v is not finite", s.Kind, p)
			}
		}
	default:
		return errors.Errorf("unknown shape %q", s.Kind)
	}

	return nil
}

// Build returns the actor shape
func (s *Shape) Build() actor.Shape {
	switch s.Kind {
	case "box":
		return actor.NewBox(s.Points...)
	case "convex":
		return actor.NewConvex(s.Points...)
	default:
		return actor.NewSphere(s.Radius)
	}
}

// RigidBody builds the body, applying its preset then its own overrides
func (b *Body) RigidBody() (actor.RigidBody, error) {
	if err := b.Validate(); err != nil {
		return actor.RigidBody{}, err
	}

	preset := Presets[b.Preset]
	shape := preset.Shape
	if b.Shape != nil {
		shape = *b.Shape
	}
	inverseMass := preset.InverseMass
	if b.InverseMass != nil {
		inverseMass = *b.InverseMass
	}
	material := preset.Material
	if b.Elasticity != nil {
		material.Elasticity = *b.Elasticity
	}
	if b.Friction != nil {
		material.Friction = *b.Friction
	}

	transform := actor.Transform{Position: b.Position, Rotation: mgl64.QuatIdent()}
	if b.Rotation != nil && b.Rotation.Angle != 0 {
		transform.Rotation = mgl64.QuatRotate(b.Rotation.Angle, b.Rotation.Axis.Normalize())
	}

	rb := actor.NewRigidBody(transform, shape.Build(), inverseMass)
	rb.Material = material
	rb.Velocity = b.Velocity
	rb.AngularVelocity = b.AngularVelocity

	return rb, nil
}

// World builds a world holding every body of the scene, in order
func (s *Scene) World() (*boule.World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	gravity := DefaultGravity
	if s.Gravity != nil {
		gravity = *s.Gravity
	}

	world := boule.NewWorld(gravity)
	world.Broadphase = s.Broadphase.build()
	world.SleepVelocity = s.Sleep.Velocity
	world.SleepTime = s.Sleep.Time

	for i := range s.Bodies {
		rb, err := s.Bodies[i].RigidBody()
		if err != nil {
			return nil, errors.Wrapf(err, "body %d (%s)", i, s.Bodies[i].Name)
		}
		world.AddBody(rb)
	}

	return world, nil
}

// Index returns the world index of the body called name, or -1
func (s *Scene) Index(name string) int {
	for i := range s.Bodies {
		if s.Bodies[i].Name == name {
			return i
		}
	}

	return -1
}

func (b Broadphase) build() boule.Broadphase {
	switch b.Kind {
	case BroadphaseGrid:
		cellSize, cells := b.CellSize, b.Cells
		if cellSize == 0 {
			cellSize = defaultCellSize
		}
		if cells == 0 {
			cells = defaultCells
		}
		return boule.NewSpatialGrid(cellSize, cells)
	case BroadphaseBruteForce:
		return boule.BruteForce{}
	default:
		sap := boule.NewSweepAndPrune()
		if b.Axis != nil && b.Axis.Len() > 0 {
			sap.Axis = b.Axis.Normalize()
		}
		return sap
	}
}

func finiteVec(v mgl64.Vec3) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}

func unit(f float64) bool {
	return f >= 0 && f <= 1
}
