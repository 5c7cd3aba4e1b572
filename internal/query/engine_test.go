package query

import (
	"errors"
	"testing"

	"sdfplay/internal/kernel"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// fakeKernel returns canned output and records the last batch.
type fakeKernel struct {
	out   []rl.Vector4
	err   error
	calls int
	last  kernel.Batch
}

func (f *fakeKernel) Dispatch(b kernel.Batch) ([]rl.Vector4, error) {
	f.calls++
	f.last = b
	return f.out, f.err
}

func TestReduceShapecastPicksLowestFraction(t *testing.T) {
	n1 := ShapecastEvent{X: 0, Y: 1, Z: 0, W: 0.3}
	n2 := ShapecastEvent{X: 1, Y: 0, Z: 0, W: 1.0}
	n3 := ShapecastEvent{X: 0, Y: 0, Z: 1, W: 0.6}

	ev, ok := ReduceShapecast([]ShapecastEvent{n1, n2, n3})
	if !ok {
		t.Fatal("Expected an impact")
	}
	if ev != n1 {
		t.Errorf("Expected %v, got %v", n1, ev)
	}
}

func TestReduceShapecastIgnoresDegenerate(t *testing.T) {
	degenerate := ShapecastEvent{W: 0.1}
	hit := ShapecastEvent{Y: 1, W: 0.4}

	ev, ok := ReduceShapecast([]ShapecastEvent{degenerate, hit})
	if !ok || ev != hit {
		t.Errorf("Expected %v, got %v (ok=%v)", hit, ev, ok)
	}
}

func TestReduceShapecastNoImpact(t *testing.T) {
	ev, ok := ReduceShapecast([]ShapecastEvent{NoImpact, NoImpact})
	if ok {
		t.Error("Expected no impact")
	}
	if ev.Fraction() != 1 {
		t.Errorf("Expected fraction 1, got %f", ev.Fraction())
	}

	if _, ok := ReduceShapecast(nil); ok {
		t.Error("Empty batch reported an impact")
	}
}

func TestReduceCollisionPicksDeepest(t *testing.T) {
	events := []CollisionEvent{
		{Y: 1, W: 0.5},
		{X: 1, W: -0.2},
		{Z: 1, W: -0.7},
		{Y: 1, W: -0.1},
	}

	ev, ok := ReduceCollision(events)
	if !ok {
		t.Fatal("Expected a collision")
	}
	if ev.Depth() != -0.7 || ev.Z != 1 {
		t.Errorf("Expected deepest event (0,0,1,-0.7), got %v", ev)
	}
}

func TestReduceCollisionNoResult(t *testing.T) {
	ev, ok := ReduceCollision([]CollisionEvent{{W: 0}, {W: 3}})
	if ok {
		t.Errorf("Expected no collision, got %v", ev)
	}
}

func TestQueryCollisionNoOverlap(t *testing.T) {
	reg := registry.New(4)
	reg.Allocate(rl.NewVector4(0, -10, 0, registry.FlagCollision), rl.NewVector4(1, 0, 0, registry.TypeSphere), rl.Vector4{})
	e := NewEngine(kernel.NewCPU(), reg, 0)

	events, err := e.QueryCollision([]rl.Vector4{
		rl.NewVector4(0, 0, 0, 0),
		rl.NewVector4(5, 5, 5, 0),
	})
	if err != nil {
		t.Fatalf("QueryCollision failed: %v", err)
	}
	for i, ev := range events {
		if ev.Colliding() {
			t.Errorf("Point %d reported a collision: %v", i, ev)
		}
	}
	if _, ok := ReduceCollision(events); ok {
		t.Error("Batch reduced to a collision")
	}
}

func TestQueryCollisionPassesSnapshot(t *testing.T) {
	reg := registry.New(3)
	reg.Allocate(rl.NewVector4(1, 2, 3, registry.FlagCollision), rl.NewVector4(1, 0, 0, registry.TypeSphere), rl.Vector4{})
	fk := &fakeKernel{out: []rl.Vector4{{W: 1}}}
	e := NewEngine(fk, reg, -2)

	if _, err := e.QueryCollision([]rl.Vector4{{}}); err != nil {
		t.Fatalf("QueryCollision failed: %v", err)
	}
	if fk.last.Entry != kernel.EntryCollision {
		t.Errorf("Expected collision entry, got %v", fk.last.Entry)
	}
	if len(fk.last.Positions) != 3 || fk.last.Positions[0].X != 1 {
		t.Errorf("Kernel did not receive the dense snapshot: %v", fk.last.Positions)
	}
	if fk.last.Params[0] != 0 {
		t.Errorf("Expected negative blend factor clamped to 0, got %f", fk.last.Params[0])
	}
	if reg.ActiveCount() != 1 {
		t.Error("Query mutated the registry")
	}
}

func TestQueryShapecastParamsAndClamp(t *testing.T) {
	reg := registry.New(2)
	fk := &fakeKernel{out: []rl.Vector4{
		{Y: 1, W: -0.2},
		{X: 1, W: 1.5},
	}}
	e := NewEngine(fk, reg, 0.5)

	events, err := e.QueryShapecast([]rl.Vector4{{}, {}}, rl.NewVector3(1, 2, 3))
	if err != nil {
		t.Fatalf("QueryShapecast failed: %v", err)
	}
	want := []float32{0.5, 1, 2, 3}
	for i, v := range want {
		if fk.last.Params[i] != v {
			t.Errorf("Param %d: expected %f, got %f", i, v, fk.last.Params[i])
		}
	}
	if events[0].Fraction() != 0 {
		t.Errorf("Expected fraction clamped to 0, got %f", events[0].Fraction())
	}
	if events[1] != NoImpact {
		t.Errorf("Expected full travel to normalize to NoImpact, got %v", events[1])
	}
}

func TestQueryEmptyBatchSkipsKernel(t *testing.T) {
	fk := &fakeKernel{}
	e := NewEngine(fk, registry.New(2), 0)

	events, err := e.QueryCollision(nil)
	if err != nil || len(events) != 0 {
		t.Errorf("Expected empty result, got %v, %v", events, err)
	}
	if fk.calls != 0 {
		t.Errorf("Expected no dispatch, got %d", fk.calls)
	}
}

func TestQueryKernelUnavailable(t *testing.T) {
	fk := &fakeKernel{err: kernel.ErrUnavailable}
	e := NewEngine(fk, registry.New(2), 0)

	_, _, err := e.Shapecast([]rl.Vector4{{}}, rl.NewVector3(0, -1, 0))
	if !errors.Is(err, kernel.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}

	e.Kernel = nil
	_, _, err = e.Collide([]rl.Vector4{{}})
	if !errors.Is(err, kernel.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable without a kernel, got %v", err)
	}
}

func TestQueryOutputLengthMismatch(t *testing.T) {
	fk := &fakeKernel{out: []rl.Vector4{{}}}
	e := NewEngine(fk, registry.New(2), 0)

	_, err := e.QueryCollision([]rl.Vector4{{}, {}})
	if !errors.Is(err, kernel.ErrMisconfigured) {
		t.Errorf("Expected ErrMisconfigured, got %v", err)
	}
}
