// Command petanque plays a petanque scene: boules are thrown toward the
// cochonnet on a huge spherical ground. It renders a top-down terminal view,
// or steps a fixed number of frames and logs the outcome with -headless.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/akmonengine/boule"
	"github.com/akmonengine/boule/scene"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

type options struct {
	scenePath string
	headless  bool
	frames    int
	dt        float64
	scale     float64
	level     string
}

func main() {
	var opts options
	flag.StringVar(&opts.scenePath, "scene", "petanque.yaml", "scene file")
	flag.BoolVar(&opts.headless, "headless", false, "step without rendering and log the result")
	flag.IntVar(&opts.frames, "frames", 600, "frames to simulate in headless mode")
	flag.Float64Var(&opts.dt, "dt", 1.0/60.0, "time step in seconds")
	flag.Float64Var(&opts.scale, "scale", 2, "world units per terminal cell")
	flag.StringVar(&opts.level, "level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "petanque",
		ReportTimestamp: true,
	})

	if err := run(opts, logger); err != nil {
		logger.Error("petanque failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *log.Logger) error {
	level, err := log.ParseLevel(opts.level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", opts.level)
	}
	logger.SetLevel(level)

	if !(opts.dt > 0) {
		return errors.Errorf("time step must be positive, got %v", opts.dt)
	}

	s, err := scene.Load(opts.scenePath)
	if err != nil {
		return err
	}

	if opts.headless {
		return runHeadless(s, opts, logger)
	}

	return runTerminal(s, opts)
}

// newWorld builds the scene world with logging and event reporting wired in
func newWorld(s *scene.Scene, logger *log.Logger) (*boule.World, error) {
	world, err := s.World()
	if err != nil {
		return nil, errors.Wrap(err, "build world")
	}
	world.Logger = logger

	name := func(i int) string {
		if i < len(s.Bodies) && s.Bodies[i].Name != "" {
			return s.Bodies[i].Name
		}
		return fmt.Sprintf("#%d", i)
	}

	world.Events.Subscribe(boule.COLLISION_ENTER, func(event boule.Event) {
		e := event.(boule.CollisionEnterEvent)
		logger.Debug("collision", "a", name(e.BodyA), "b", name(e.BodyB))
	})
	world.Events.Subscribe(boule.ON_SLEEP, func(event boule.Event) {
		logger.Info("at rest", "body", name(event.(boule.SleepEvent).Body))
	})

	return world, nil
}

func runHeadless(s *scene.Scene, opts options, logger *log.Logger) error {
	world, err := newWorld(s, logger)
	if err != nil {
		return err
	}

	for frame := 0; frame < opts.frames; frame++ {
		world.Step(opts.dt)
	}

	for i := range world.Bodies {
		body := world.Body(i)
		if body.IsStatic() {
			continue
		}
		logger.Info("body",
			"name", s.Bodies[i].Name,
			"position", body.Transform.Position,
			"speed", body.Velocity.Len(),
			"sleeping", body.IsSleeping,
		)
	}

	for rank, d := range standings(s, world) {
		logger.Info("standing", "rank", rank+1, "boule", d.name, "distance", d.distance)
	}

	return nil
}

type standing struct {
	name     string
	distance float64
}

// standings ranks the boules by distance to the cochonnet, closest first
func standings(s *scene.Scene, world *boule.World) []standing {
	jack := world.Body(s.Index("cochonnet"))
	if jack == nil {
		return nil
	}

	var result []standing
	for i := range s.Bodies {
		if s.Bodies[i].Preset != "boule" {
			continue
		}
		offset := world.Body(i).Transform.Position.Sub(jack.Transform.Position)
		result = append(result, standing{name: s.Bodies[i].Name, distance: offset.Len()})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].distance < result[j].distance
	})

	return result
}
