package world

import (
	"errors"
	"testing"

	"sdfplay/internal/input"
	"sdfplay/internal/kernel"
	"sdfplay/internal/physics"
	"sdfplay/internal/query"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// failingKernel fails every dispatch.
type failingKernel struct{}

func (failingKernel) Dispatch(kernel.Batch) ([]rl.Vector4, error) {
	return nil, kernel.ErrUnavailable
}

func newTestWorld(t *testing.T, capacity int) *World {
	t.Helper()
	reg := registry.New(capacity)
	cfg := DefaultConfig()
	cfg.PlayerStart = rl.Vector3{X: 0, Y: 0, Z: -20}

	w, err := New(reg, query.NewEngine(kernel.NewCPU(), reg, 0), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func TestNewAllocatesAnchor(t *testing.T) {
	w := newTestWorld(t, 4)

	if w.Registry().ActiveCount() != 1 {
		t.Fatalf("Expected 1 shape, got %d", w.Registry().ActiveCount())
	}
	s, ok := w.Registry().Get(0)
	if !ok || s.Position.W != registry.FlagNoRender {
		t.Errorf("Expected hidden anchor in slot 0, got %v (ok=%v)", s, ok)
	}

	if _, err := New(registry.New(1), nil, DefaultConfig()); err != nil {
		t.Errorf("Expected anchor to fit a 1-slot registry: %v", err)
	}
}

func TestSpawnGrenadeFullRegistry(t *testing.T) {
	w := newTestWorld(t, 2)

	if _, err := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{Z: 1}); err != nil {
		t.Fatalf("First spawn failed: %v", err)
	}

	spawned := 0
	w.OnGrenadeSpawned.AddListener(func(GrenadeID) { spawned++ })

	before := w.Registry().ActiveCount()
	_, err := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{Z: 1})
	if !errors.Is(err, registry.ErrFull) {
		t.Errorf("Expected ErrFull, got %v", err)
	}
	if w.Registry().ActiveCount() != before {
		t.Errorf("Expected active count %d, got %d", before, w.Registry().ActiveCount())
	}
	if w.GrenadeCount() != 1 || len(w.Grenades()) != 1 {
		t.Errorf("Expected 1 grenade, got %d", w.GrenadeCount())
	}
	if spawned != 0 {
		t.Error("Spawn event fired for a rejected spawn")
	}
}

func TestGrenadeRangeExplosionLifecycle(t *testing.T) {
	w := newTestWorld(t, 8)

	var explodedAt []rl.Vector3
	w.OnExplosion.AddListener(func(at rl.Vector3) { explodedAt = append(explodedAt, at) })
	var removed []GrenadeID
	w.OnGrenadeRemoved.AddListener(func(id GrenadeID) { removed = append(removed, id) })

	id, err := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{Z: 5})
	if err != nil {
		t.Fatalf("SpawnGrenade failed: %v", err)
	}
	g, _ := w.Grenade(id)
	if g.Position != (rl.Vector3{}) || g.Velocity != (rl.Vector3{Z: 5}) {
		t.Fatalf("Expected grenade at origin with velocity (0,0,5), got %v %v", g.Position, g.Velocity)
	}

	// fly until the range check trips
	ticks := 0
	for {
		if err := w.Step(1, input.State{}); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		ticks++
		g, ok := w.Grenade(id)
		if !ok {
			t.Fatal("Grenade removed before exploding")
		}
		if g.State() == physics.Exploded {
			break
		}
		if ticks > 100 {
			t.Fatal("Grenade never exploded")
		}
		s, _ := w.Registry().Get(g.Address)
		if s.Position.Z != g.Position.Z {
			t.Errorf("Tick %d: shape at z=%f, grenade at z=%f", ticks, s.Position.Z, g.Position.Z)
		}
	}

	if g, _ := w.Grenade(id); g.Traveled() <= 50 {
		t.Errorf("Exploded before leaving range: traveled %f", g.Traveled())
	}
	if len(explodedAt) != 1 {
		t.Fatalf("Expected 1 explosion, got %d", len(explodedAt))
	}

	before := w.Registry().ActiveCount()
	if err := w.Step(1, input.State{}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if w.Registry().ActiveCount() != before-1 {
		t.Errorf("Expected active count %d, got %d", before-1, w.Registry().ActiveCount())
	}
	if _, ok := w.Grenade(id); ok {
		t.Error("Grenade still attached after destroy")
	}
	if len(removed) != 1 || removed[0] != id {
		t.Errorf("Expected removed event for %d, got %v", id, removed)
	}

	// nothing left to explode or release
	if err := w.Step(1, input.State{}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if len(explodedAt) != 1 || len(removed) != 1 {
		t.Error("Grenade exploded or was removed twice")
	}
}

func TestGrenadeExplodesOnWorldCollision(t *testing.T) {
	w := newTestWorld(t, 8)
	w.Registry().Allocate(
		rl.NewVector4(0, 0, 3, registry.FlagCollision),
		rl.NewVector4(1, 1, 1, registry.TypeBox),
		rl.Vector4{},
	)

	// z=0 is clear, z=2.5 is inside the box
	id, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{Z: 5})
	for range 2 {
		if err := w.Step(0.5, input.State{}); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	g, ok := w.Grenade(id)
	if !ok {
		t.Fatal("Grenade destroyed too early")
	}
	if g.State() != physics.Exploded {
		t.Errorf("Expected exploded inside the box, got %v at %v", g.State(), g.Position)
	}
}

func TestRemoveGrenadeTwice(t *testing.T) {
	w := newTestWorld(t, 4)

	id, err := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: 1})
	if err != nil {
		t.Fatalf("SpawnGrenade failed: %v", err)
	}
	before := w.Registry().ActiveCount()

	if err := w.RemoveGrenade(id); err != nil {
		t.Fatalf("RemoveGrenade failed: %v", err)
	}
	if w.Registry().ActiveCount() != before-1 {
		t.Errorf("Expected slot released, active %d", w.Registry().ActiveCount())
	}
	if err := w.RemoveGrenade(id); !errors.Is(err, ErrUnknownGrenade) {
		t.Errorf("Expected ErrUnknownGrenade, got %v", err)
	}
	if w.Registry().ActiveCount() != before-1 {
		t.Error("Second remove released another slot")
	}
}

func TestNotifyCollision(t *testing.T) {
	w := newTestWorld(t, 4)
	id, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: 1})

	explosions := 0
	w.OnExplosion.AddListener(func(rl.Vector3) { explosions++ })

	if err := w.NotifyCollision(id, query.CollisionEvent{Y: 1, W: -0.1}); err != nil {
		t.Fatalf("NotifyCollision failed: %v", err)
	}
	w.NotifyCollision(id, query.CollisionEvent{Y: 1, W: -0.1})
	if explosions != 1 {
		t.Errorf("Expected 1 explosion, got %d", explosions)
	}

	if err := w.NotifyCollision(999, query.CollisionEvent{}); !errors.Is(err, ErrUnknownGrenade) {
		t.Errorf("Expected ErrUnknownGrenade, got %v", err)
	}
}

func TestNotifyExplosionPushesPlayer(t *testing.T) {
	w := newTestWorld(t, 4)
	p := w.Player()

	w.NotifyExplosion(rl.Vector3Add(p.Center(), rl.Vector3{X: -1}))
	if p.Velocity.X <= 0 {
		t.Errorf("Expected push along +X, got %v", p.Velocity)
	}
}

func TestKernelErrorAbortsTick(t *testing.T) {
	reg := registry.New(4)
	w, err := New(reg, query.NewEngine(failingKernel{}, reg, 0), DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{Z: 1})
	before, _ := w.Grenade(id)
	anchor, _ := reg.Get(0)

	err = w.Step(0.1, input.State{Forward: true})
	if !errors.Is(err, kernel.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if got, _ := reg.Get(0); got != anchor {
		t.Errorf("Aborted tick moved the anchor: %v -> %v", anchor, got)
	}
	if g, _ := w.Grenade(id); g.Position != before.Position || !g.Flying() {
		t.Errorf("Aborted tick changed the grenade: %v", g)
	}
}

func TestPlayerLandsOnFloor(t *testing.T) {
	reg := registry.New(8)
	floor, _ := reg.Allocate(
		rl.NewVector4(0, -1, 0, registry.FlagCollision),
		rl.NewVector4(10, 0.5, 10, registry.TypeBox),
		rl.Vector4{},
	)
	cfg := DefaultConfig()
	cfg.PlayerStart = rl.Vector3{Y: 1}
	w, err := New(reg, query.NewEngine(kernel.NewCPU(), reg, 0), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for range 180 {
		if err := w.Step(1.0/60, input.State{}); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	p := w.Player()
	if p.Position.Y < -0.55 || p.Position.Y > -0.3 {
		t.Errorf("Expected feet resting near y=-0.5, got %f", p.Position.Y)
	}
	if !p.Grounded() {
		t.Error("Expected player grounded")
	}

	s, _ := reg.Get(w.anchor)
	if s.Position.Y != p.Position.Y {
		t.Errorf("Anchor not following player: %f vs %f", s.Position.Y, p.Position.Y)
	}

	// the floor goes away under a player standing still
	rest := p.Position.Y
	if err := reg.Release(floor); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := w.Step(1.0/60, input.State{}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if p.Grounded() {
		t.Error("Expected player airborne once the floor is gone")
	}
	for range 10 {
		if err := w.Step(1.0/60, input.State{}); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if p.Position.Y >= rest {
		t.Errorf("Expected player to fall below %f, got %f", rest, p.Position.Y)
	}
}

func TestFireSpawnsGrenade(t *testing.T) {
	w := newTestWorld(t, 4)

	if err := w.Step(0.1, input.State{Fire: true}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	grenades := w.Grenades()
	if len(grenades) != 1 {
		t.Fatalf("Expected 1 grenade, got %d", len(grenades))
	}
	if w.Registry().ActiveCount() != 2 {
		t.Errorf("Expected 2 shapes, got %d", w.Registry().ActiveCount())
	}

	// thrown from in front of the eye at the configured speed
	cfg := physics.DefaultGrenadeConfig()
	p := w.Player()
	start := rl.Vector3Add(p.Eye(), rl.Vector3Scale(p.LookDirection(), cfg.SpawnOffset))
	if d := rl.Vector3Distance(grenades[0].Position, start); d > 1e-4 {
		t.Errorf("Expected grenade at %v, got %v", start, grenades[0].Position)
	}
	if speed := rl.Vector3Length(grenades[0].Velocity); speed < cfg.Speed-1e-3 || speed > cfg.Speed+1e-3 {
		t.Errorf("Expected speed %f, got %f", cfg.Speed, speed)
	}
}

func TestSpawnGrenadeKeepsPositionAndVelocity(t *testing.T) {
	w := newTestWorld(t, 4)

	id, err := w.SpawnGrenade(rl.Vector3{X: 1, Y: 2, Z: 3}, rl.Vector3{X: 0.5})
	if err != nil {
		t.Fatalf("SpawnGrenade failed: %v", err)
	}
	g, _ := w.Grenade(id)
	if g.Position != (rl.Vector3{X: 1, Y: 2, Z: 3}) || g.Velocity != (rl.Vector3{X: 0.5}) {
		t.Errorf("Expected grenade at (1,2,3) moving (0.5,0,0), got %v %v", g.Position, g.Velocity)
	}
	s, _ := w.Registry().Get(g.Address)
	if s.Position != rl.NewVector4(1, 2, 3, registry.FlagNoCollision) {
		t.Errorf("Expected shape at the spawn point, got %v", s.Position)
	}
}

// removeOnRemoval removes other as soon as first is removed.
func removeOnRemoval(t *testing.T, w *World, first, other GrenadeID) *[]GrenadeID {
	t.Helper()
	var removed []GrenadeID
	w.OnGrenadeRemoved.AddListener(func(id GrenadeID) {
		removed = append(removed, id)
		if id == first {
			if err := w.RemoveGrenade(other); err != nil {
				t.Errorf("RemoveGrenade from listener failed: %v", err)
			}
		}
	})
	return &removed
}

func TestRemoveFromRemovedListenerDuringTick(t *testing.T) {
	w := newTestWorld(t, 4)
	a, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: 1})
	b, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: -1})
	removed := removeOnRemoval(t, w, a, b)

	w.NotifyCollision(a, query.CollisionEvent{Y: 1, W: -1})
	if err := w.Step(0.1, input.State{}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	if len(*removed) != 2 || (*removed)[0] != a || (*removed)[1] != b {
		t.Errorf("Expected removed events [%d %d], got %v", a, b, *removed)
	}
	if w.Registry().ActiveCount() != 1 {
		t.Errorf("Expected only the anchor left, got %d shapes", w.Registry().ActiveCount())
	}
	if w.GrenadeCount() != 0 || len(w.Grenades()) != 0 {
		t.Errorf("Expected no grenades, got %d", w.GrenadeCount())
	}
	if err := w.RemoveGrenade(b); !errors.Is(err, ErrUnknownGrenade) {
		t.Errorf("Expected ErrUnknownGrenade, got %v", err)
	}
}

func TestRemoveFromRemovedListenerOutsideTick(t *testing.T) {
	w := newTestWorld(t, 4)
	a, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: 1})
	b, _ := w.SpawnGrenade(rl.Vector3{}, rl.Vector3{X: -1})
	removed := removeOnRemoval(t, w, a, b)

	if err := w.RemoveGrenade(a); err != nil {
		t.Fatalf("RemoveGrenade failed: %v", err)
	}

	if len(*removed) != 2 || (*removed)[0] != a || (*removed)[1] != b {
		t.Errorf("Expected removed events [%d %d], got %v", a, b, *removed)
	}
	if w.Registry().ActiveCount() != 1 {
		t.Errorf("Expected only the anchor left, got %d shapes", w.Registry().ActiveCount())
	}
	if w.GrenadeCount() != 0 || len(w.Grenades()) != 0 {
		t.Errorf("Expected no grenades, got %d", w.GrenadeCount())
	}
}
