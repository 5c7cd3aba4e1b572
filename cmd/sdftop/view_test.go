package main

import (
	"testing"

	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestViewCellRoundTrip(t *testing.T) {
	v := newView(rl.Vector3{X: 10, Z: -5}, 80, 24)

	x, y, ok := v.cell(rl.Vector3{X: 10, Z: -5})
	if !ok || x != 40 || y != 12 {
		t.Fatalf("Expected center cell (40, 12), got (%d, %d) ok=%v", x, y, ok)
	}

	wx, wz := v.world(x, y)
	if wx < 10 || wx > 10.25 || wz < -5 || wz > -4.5 {
		t.Errorf("Expected world point inside the center cell, got (%f, %f)", wx, wz)
	}

	if _, _, ok := v.cell(rl.Vector3{X: 100}); ok {
		t.Error("Point far off screen mapped to a cell")
	}
}

func TestTopShapePicksHighest(t *testing.T) {
	reg := registry.New(4)
	reg.Allocate(rl.NewVector4(0, -3, 0, registry.FlagCollision), rl.NewVector4(5, 0.5, 5, registry.TypeBox), rl.NewVector4(0, 0, 1, 0))
	wall, _ := reg.Allocate(rl.NewVector4(3, -2, 0, registry.FlagCollision), rl.NewVector4(1, 1, 5, registry.TypeBox), rl.NewVector4(1, 1, 1, 0))
	reg.Allocate(rl.NewVector4(0, 10, 0, registry.FlagNoRender), rl.NewVector4(50, 0, 0, registry.TypeSphere), rl.NewVector4(1, 1, 1, 0))

	v := newView(rl.Vector3{}, 80, 24)
	snap := reg.Snapshot()

	x, y, _ := v.cell(rl.Vector3{X: 3, Z: 0})
	i, ok := v.topShape(snap, x, y)
	if !ok || registry.Address(i) != wall {
		t.Errorf("Expected wall on top at x=3, got %d (ok=%v)", i, ok)
	}

	x, y, _ = v.cell(rl.Vector3{X: -1, Z: 0})
	if i, ok := v.topShape(snap, x, y); !ok || i != 0 {
		t.Errorf("Expected floor at x=-1, got %d (ok=%v)", i, ok)
	}

	x, y, _ = v.cell(rl.Vector3{X: -9, Z: 0})
	if i, ok := v.topShape(snap, x, y); ok {
		t.Errorf("Expected empty cell outside the floor, got %d", i)
	}
}

func TestFacingRune(t *testing.T) {
	tests := []struct {
		dir  rl.Vector3
		want rune
	}{
		{rl.Vector3{X: 1}, '>'},
		{rl.Vector3{X: -1, Z: 0.2}, '<'},
		{rl.Vector3{Z: 1}, 'v'},
		{rl.Vector3{X: 0.1, Z: -1}, '^'},
	}
	for _, tt := range tests {
		if got := facingRune(tt.dir); got != tt.want {
			t.Errorf("Direction %v: expected %q, got %q", tt.dir, tt.want, got)
		}
	}
}
