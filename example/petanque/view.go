package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/akmonengine/boule"
	"github.com/akmonengine/boule/actor"
	"github.com/akmonengine/boule/scene"
	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
)

// view draws the world from above, centered on the origin
type view struct {
	screen tcell.Screen
	scale  float64
	paused bool
}

func runTerminal(s *scene.Scene, opts options) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "open terminal")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "init terminal")
	}
	defer screen.Fini()

	// The terminal is ours, keep the world quiet
	world, err := newWorld(s, log.New(io.Discard))
	if err != nil {
		return err
	}

	v := &view{screen: screen, scale: opts.scale}
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Duration(opts.dt * float64(time.Second)))
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}
				if ev.Key() == tcell.KeyRune {
					switch ev.Rune() {
					case ' ':
						v.paused = !v.paused
					case 'r':
						if world, err = newWorld(s, log.New(io.Discard)); err != nil {
							return err
						}
						frame = 0
					case '+':
						v.scale = math.Max(v.scale/1.5, 0.1)
					case '-':
						v.scale *= 1.5
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			if !v.paused {
				world.Step(opts.dt)
				frame++
			}
			v.draw(s, world, frame, opts.dt)
		}
	}
}

func (v *view) draw(s *scene.Scene, world *boule.World, frame int, dt float64) {
	v.screen.Clear()
	width, height := v.screen.Size()

	for i := range world.Bodies {
		body := world.Body(i)
		radius := 0.0
		if sphere, ok := body.Shape.(*actor.Sphere); ok {
			radius = sphere.Radius
		}
		// The ground fills the whole view
		if body.IsStatic() && radius*2 > float64(width)*v.scale {
			continue
		}

		// Terminal cells are about twice as tall as wide
		x := width/2 + int(math.Round(body.Transform.Position.X()/v.scale))
		y := height/2 - int(math.Round(body.Transform.Position.Y()/(2*v.scale)))
		if x < 0 || x >= width || y < 1 || y >= height {
			continue
		}

		v.screen.SetContent(x, y, glyph(s.Bodies[i].Preset, body), nil, style(s.Bodies[i].Preset, body))
	}

	status := fmt.Sprintf(" t=%.2fs  scale=%.1f  [space] pause  [r] restart  [+/-] zoom  [q] quit", float64(frame)*dt, v.scale)
	if v.paused {
		status += "  PAUSED"
	}
	for i, r := range status {
		if i >= width {
			break
		}
		v.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
	}

	v.screen.Show()
}

func glyph(preset string, body *actor.RigidBody) rune {
	switch {
	case preset == "cochonnet":
		return 'o'
	case preset == "boule":
		return 'O'
	case body.Shape.Type() == actor.ShapeTypeBox:
		return '#'
	default:
		return '*'
	}
}

func style(preset string, body *actor.RigidBody) tcell.Style {
	s := tcell.StyleDefault
	switch preset {
	case "cochonnet":
		s = s.Foreground(tcell.ColorYellow)
	case "boule":
		s = s.Foreground(tcell.ColorSilver)
	default:
		s = s.Foreground(tcell.ColorGreen)
	}
	if body.IsSleeping {
		s = s.Dim(true)
	}

	return s
}
