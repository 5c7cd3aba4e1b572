package query

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// CollisionEvent packs an outward surface normal (xyz) and a signed
// penetration depth (w). Negative w means the point is overlapping geometry.
type CollisionEvent rl.Vector4

func (e CollisionEvent) Normal() rl.Vector3 {
	return rl.NewVector3(e.X, e.Y, e.Z)
}

func (e CollisionEvent) Depth() float32 {
	return e.W
}

// Colliding reports whether the event is a penetration.
func (e CollisionEvent) Colliding() bool {
	return e.W < 0
}

// ShapecastEvent packs the impact normal (xyz) and the fraction of the sweep
// travelled before impact (w, 1 = no impact).
type ShapecastEvent rl.Vector4

// NoImpact is the representative event of a sweep that hit nothing.
var NoImpact = ShapecastEvent{W: 1}

func (e ShapecastEvent) Normal() rl.Vector3 {
	return rl.NewVector3(e.X, e.Y, e.Z)
}

func (e ShapecastEvent) Fraction() float32 {
	return e.W
}

// Impact reports whether the sweep stopped short against a surface.
func (e ShapecastEvent) Impact() bool {
	return e.W < 1 && rl.Vector3Length(e.Normal()) != 0
}

// ReduceCollision selects the deepest penetration in a batch. The bool is
// false when no point is overlapping.
func ReduceCollision(events []CollisionEvent) (CollisionEvent, bool) {
	var deepest CollisionEvent
	found := false
	for _, e := range events {
		if e.W < 0 && (!found || e.W < deepest.W) {
			deepest = e
			found = true
		}
	}
	return deepest, found
}

// ReduceShapecast selects the earliest impact in a batch. Events with a zero
// normal are degenerate and ignored. The bool is false when every point
// travelled its full displacement.
func ReduceShapecast(events []ShapecastEvent) (ShapecastEvent, bool) {
	best := NoImpact
	for _, e := range events {
		if rl.Vector3Length(e.Normal()) != 0 && e.W < best.W {
			best = e
		}
	}
	return best, best.W < 1
}
