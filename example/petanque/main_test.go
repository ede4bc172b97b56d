package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/akmonengine/boule/scene"
	"github.com/charmbracelet/log"
)

const throwScene = `
bodies:
  - name: earth
    preset: earth
    position: [0, 0, -1000]
  - name: cochonnet
    preset: cochonnet
    position: [0, 0, 0.5]
  - name: far
    preset: boule
    position: [0, 30, 5]
  - name: near
    preset: boule
    position: [12, 0, 5]
`

func TestStandings(t *testing.T) {
	s, err := scene.Decode(strings.NewReader(throwScene))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	world, err := s.World()
	if err != nil {
		t.Fatalf("World() error = %v", err)
	}

	got := standings(s, world)
	if len(got) != 2 {
		t.Fatalf("len(standings) = %d, want 2", len(got))
	}
	if got[0].name != "near" || got[1].name != "far" {
		t.Errorf("standings = %+v, want near before far", got)
	}
}

func TestStandings_NoCochonnet(t *testing.T) {
	s, err := scene.Decode(strings.NewReader("bodies: [{name: lone, preset: boule}]"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	world, err := s.World()
	if err != nil {
		t.Fatalf("World() error = %v", err)
	}

	if got := standings(s, world); got != nil {
		t.Errorf("standings = %+v, want none", got)
	}
}

func TestRunHeadless(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})

	opts := options{scenePath: "petanque.yaml", headless: true, frames: 120, dt: 1.0 / 60.0, level: "info"}
	if err := run(opts, logger); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"standing", "red", "blue"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	logger := log.New(&bytes.Buffer{})

	tests := []struct {
		name string
		opts options
	}{
		{"bad level", options{scenePath: "petanque.yaml", dt: 0.01, level: "loud"}},
		{"bad dt", options{scenePath: "petanque.yaml", dt: 0, level: "info"}},
		{"missing scene", options{scenePath: "nope.yaml", dt: 0.01, level: "info", headless: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.opts, logger); err == nil {
				t.Error("run() should fail")
			}
		})
	}
}
