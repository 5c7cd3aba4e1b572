// Package query issues batched collision and shapecast requests against the
// shape registry and turns raw kernel output into events.
package query

import (
	"fmt"

	"sdfplay/internal/kernel"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Source provides the registry layout the kernel reads.
type Source interface {
	Snapshot() registry.Snapshot
}

// Engine is stateless apart from the blend factor; it never mutates the source.
type Engine struct {
	Kernel      kernel.Kernel
	Source      Source
	BlendFactor float32
}

func NewEngine(k kernel.Kernel, src Source, blend float32) *Engine {
	return &Engine{Kernel: k, Source: src, BlendFactor: blend}
}

// QueryCollision returns one event per point. Points outside every shape
// come back with w >= 0.
func (e *Engine) QueryCollision(points []rl.Vector4) ([]CollisionEvent, error) {
	out, err := e.dispatch(kernel.EntryCollision, points, []float32{e.blend()})
	if err != nil {
		return nil, err
	}

	events := make([]CollisionEvent, len(out))
	for i, v := range out {
		events[i] = CollisionEvent(v)
	}
	return events, nil
}

// QueryShapecast sweeps every point by displacement (already scaled by dt).
func (e *Engine) QueryShapecast(points []rl.Vector4, displacement rl.Vector3) ([]ShapecastEvent, error) {
	params := []float32{e.blend(), displacement.X, displacement.Y, displacement.Z}
	out, err := e.dispatch(kernel.EntryShapecast, points, params)
	if err != nil {
		return nil, err
	}

	events := make([]ShapecastEvent, len(out))
	for i, v := range out {
		ev := ShapecastEvent(v)
		ev.W = max(0, min(ev.W, 1))
		if ev.W == 1 {
			ev = NoImpact
		}
		events[i] = ev
	}
	return events, nil
}

// Collide queries and reduces in one call.
func (e *Engine) Collide(points []rl.Vector4) (CollisionEvent, bool, error) {
	events, err := e.QueryCollision(points)
	if err != nil {
		return CollisionEvent{}, false, err
	}
	ev, ok := ReduceCollision(events)
	return ev, ok, nil
}

// Shapecast queries and reduces in one call.
func (e *Engine) Shapecast(points []rl.Vector4, displacement rl.Vector3) (ShapecastEvent, bool, error) {
	events, err := e.QueryShapecast(points, displacement)
	if err != nil {
		return NoImpact, false, err
	}
	ev, ok := ReduceShapecast(events)
	return ev, ok, nil
}

func (e *Engine) blend() float32 {
	return max(e.BlendFactor, 0)
}

func (e *Engine) dispatch(entry kernel.Entry, points []rl.Vector4, params []float32) ([]rl.Vector4, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if e.Kernel == nil {
		return nil, fmt.Errorf("%s query: %w", entry, kernel.ErrUnavailable)
	}

	snap := e.Source.Snapshot()
	out, err := e.Kernel.Dispatch(kernel.Batch{
		Entry:      entry,
		Points:     points,
		Positions:  snap.Positions,
		Properties: snap.Properties,
		Params:     params,
	})
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", entry, err)
	}
	if len(out) != len(points) {
		return nil, fmt.Errorf("%s query: %w: %d results for %d points",
			entry, kernel.ErrMisconfigured, len(out), len(points))
	}
	return out, nil
}
