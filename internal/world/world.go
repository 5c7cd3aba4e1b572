// Package world drives one simulation tick: it samples entities, runs the
// queries, routes events to the response rules and commits the resulting
// registry mutations.
package world

import (
	"errors"
	"fmt"
	"log"

	"sdfplay/internal/event"
	"sdfplay/internal/input"
	"sdfplay/internal/physics"
	"sdfplay/internal/query"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type GrenadeID = physics.GrenadeID

var ErrUnknownGrenade = errors.New("unknown grenade")

// Config is the simulation part of the application config.
type Config struct {
	Player      physics.PlayerConfig
	Grenade     physics.GrenadeConfig
	PlayerStart rl.Vector3
}

func DefaultConfig() Config {
	return Config{
		Player:      physics.DefaultPlayerConfig(),
		Grenade:     physics.DefaultGrenadeConfig(),
		PlayerStart: rl.Vector3{X: 0, Y: 0, Z: -1.5},
	}
}

// Player anchor shape: a tiny sphere the renderer and kernel both skip.
var (
	anchorProperties = rl.NewVector4(0.02, 0, 0, registry.TypeSphere)
	anchorColor      = rl.NewVector4(1, 1, 1, 0)
)

type mutationKind uint8

const (
	mutationMove mutationKind = iota
	mutationRelease
)

type mutation struct {
	kind mutationKind
	addr registry.Address
	pos  rl.Vector3
	id   GrenadeID // release only
}

type World struct {
	OnExplosion      event.Event[rl.Vector3]
	OnGrenadeSpawned event.Event[GrenadeID]
	OnGrenadeRemoved event.Event[GrenadeID]

	reg    *registry.Registry
	engine *query.Engine
	cfg    Config

	player *physics.Player
	anchor registry.Address

	grenades []*physics.Grenade
	byID     map[GrenadeID]*physics.Grenade
	nextID   GrenadeID

	pending    []mutation
	inTick     bool
	committing bool
	tick       uint64
}

// New creates a world around an existing registry. The player anchor shape
// is allocated first; a full registry is an error.
func New(reg *registry.Registry, engine *query.Engine, cfg Config) (*World, error) {
	start := cfg.PlayerStart
	addr, err := reg.Allocate(
		rl.NewVector4(start.X, start.Y, start.Z, registry.FlagNoRender),
		anchorProperties,
		anchorColor,
	)
	if err != nil {
		return nil, fmt.Errorf("allocate player anchor: %w", err)
	}

	w := &World{
		reg:    reg,
		engine: engine,
		cfg:    cfg,
		player: physics.NewPlayer(start, cfg.Player),
		anchor: addr,
		byID:   make(map[GrenadeID]*physics.Grenade),
		nextID: 1,
	}
	log.Printf("World: player anchor at slot %d, %d/%d shapes in use", addr, reg.ActiveCount(), reg.Capacity())
	return w, nil
}

// Step advances the simulation by dt. A kernel failure aborts the tick and
// drops the mutations it had queued.
func (w *World) Step(dt float32, in input.State) error {
	w.inTick = true
	defer func() { w.inTick = false }()
	w.pending = w.pending[:0]
	w.tick++

	// 1. Player steering
	w.player.Look(in.LookDelta)
	w.player.Steer(in, dt)

	// 2. Player sweep and push-out
	if err := w.movePlayer(dt); err != nil {
		w.pending = w.pending[:0]
		return fmt.Errorf("tick %d: player: %w", w.tick, err)
	}

	// 3. Keep the anchor on the player
	w.queueMove(w.anchor, w.player.Position)

	// 4. Grenades
	if err := w.stepGrenades(dt); err != nil {
		w.pending = w.pending[:0]
		return fmt.Errorf("tick %d: grenades: %w", w.tick, err)
	}

	// 5. Commit, then spawn
	w.commit()
	if in.Fire {
		w.fire()
	}
	w.compact()
	return nil
}

func (w *World) movePlayer(dt float32) error {
	sweep := rl.Vector3Scale(w.player.Velocity, dt)
	if sweep == (rl.Vector3{}) && w.player.Grounded() {
		// standing still: check the ground is still there
		ev, hit, err := w.engine.Shapecast(w.player.CollisionPoints(), rl.Vector3{Y: -w.cfg.Player.GroundProbe})
		if err != nil {
			return err
		}
		w.player.Support(ev, hit)
	} else {
		ev, hit, err := w.engine.Shapecast(w.player.CollisionPoints(), sweep)
		if err != nil {
			return err
		}
		w.player.Resolve(ev, hit, dt)
	}

	overlap, colliding, err := w.engine.Collide(w.player.CollisionPoints())
	if err != nil {
		return err
	}
	if colliding {
		w.player.Depenetrate(overlap)
	}
	return nil
}

func (w *World) stepGrenades(dt float32) error {
	// Query before touching any grenade so an error leaves them as they were
	var flying []*physics.Grenade
	var points []rl.Vector4
	for _, g := range w.grenades {
		if g.Flying() {
			flying = append(flying, g)
			points = append(points, g.SamplePoint())
		}
	}
	events, err := w.engine.QueryCollision(points)
	if err != nil {
		return err
	}

	// Grenades that exploded on an earlier tick are destroyed now
	for _, g := range w.grenades {
		if g.Expire() {
			w.queueRelease(g)
		}
	}

	for i, g := range flying {
		exploded := g.Collide(events[i])
		if !exploded {
			exploded = g.Advance(dt)
		}
		if g.State() == physics.Destroyed {
			// removed by a listener earlier in this pass
			continue
		}
		w.queueMove(g.Address, g.Position)
		if exploded {
			w.NotifyExplosion(g.Position)
		}
	}
	return nil
}

// fire throws a grenade from in front of the player's eye along the look
// direction.
func (w *World) fire() {
	cfg := w.cfg.Grenade
	dir := w.player.LookDirection()
	start := rl.Vector3Add(w.player.Eye(), rl.Vector3Scale(dir, cfg.SpawnOffset))

	if _, err := w.SpawnGrenade(start, rl.Vector3Scale(dir, cfg.Speed)); err != nil {
		log.Printf("World: grenade spawn rejected: %v", err)
	}
}

// SpawnGrenade allocates the grenade's shape at position and only then
// creates the grenade with the given velocity. A full registry rejects the
// spawn with registry.ErrFull.
func (w *World) SpawnGrenade(position, velocity rl.Vector3) (GrenadeID, error) {
	cfg := w.cfg.Grenade
	shape := physics.GrenadeShape(position, cfg)
	addr, err := w.reg.Allocate(shape.Position, shape.Properties, shape.Color)
	if err != nil {
		return 0, fmt.Errorf("spawn grenade: %w", err)
	}

	id := w.nextID
	w.nextID++
	g := physics.NewGrenade(id, addr, position, velocity, cfg)
	w.grenades = append(w.grenades, g)
	w.byID[id] = g

	w.OnGrenadeSpawned.Invoke(id)
	return id, nil
}

// RemoveGrenade destroys a grenade without an explosion and releases its
// shape. Removing the same grenade twice returns ErrUnknownGrenade. Called
// during a tick or from a removal listener, the release joins the pending
// commit instead.
func (w *World) RemoveGrenade(id GrenadeID) error {
	g, ok := w.byID[id]
	if !ok || !g.Remove() {
		return fmt.Errorf("remove grenade %d: %w", id, ErrUnknownGrenade)
	}
	w.queueRelease(g)
	if !w.inTick && !w.committing {
		w.commit()
		w.compact()
	}
	return nil
}

// NotifyCollision routes a collision event from outside the tick to a
// grenade. Events for grenades that are no longer flying are ignored.
func (w *World) NotifyCollision(id GrenadeID, ev query.CollisionEvent) error {
	g, ok := w.byID[id]
	if !ok {
		return fmt.Errorf("collision for grenade %d: %w", id, ErrUnknownGrenade)
	}
	if g.Collide(ev) {
		w.NotifyExplosion(g.Position)
	}
	return nil
}

// NotifyExplosion applies an explosion at a point to the player and tells
// the listeners.
func (w *World) NotifyExplosion(at rl.Vector3) {
	if w.player.ApplyExplosion(at) {
		log.Printf("World: player caught in explosion at (%.1f, %.1f, %.1f)", at.X, at.Y, at.Z)
	}
	w.OnExplosion.Invoke(at)
}

func (w *World) queueMove(addr registry.Address, pos rl.Vector3) {
	w.pending = append(w.pending, mutation{kind: mutationMove, addr: addr, pos: pos})
}

func (w *World) queueRelease(g *physics.Grenade) {
	w.pending = append(w.pending, mutation{kind: mutationRelease, addr: g.Address, id: g.ID})
}

// commit applies queued mutations in order. A release frees the slot before
// the grenade is detached. Mutations queued by listeners while committing
// are applied in the same pass.
func (w *World) commit() {
	w.committing = true
	defer func() { w.committing = false }()

	for i := 0; i < len(w.pending); i++ {
		m := w.pending[i]
		switch m.kind {
		case mutationMove:
			if err := w.reg.UpdatePosition(m.addr, m.pos); err != nil {
				log.Printf("World: ERROR move shape %d: %v", m.addr, err)
			}
		case mutationRelease:
			if err := w.reg.Release(m.addr); err != nil {
				log.Printf("World: ERROR release shape %d: %v", m.addr, err)
			}
			delete(w.byID, m.id)
			w.OnGrenadeRemoved.Invoke(m.id)
		}
	}
	w.pending = w.pending[:0]
}

// compact drops destroyed grenades from the live list.
func (w *World) compact() {
	live := w.grenades[:0]
	for _, g := range w.grenades {
		if g.State() != physics.Destroyed {
			live = append(live, g)
		}
	}
	clear(w.grenades[len(live):])
	w.grenades = live
}

func (w *World) Player() *physics.Player {
	return w.player
}

// Grenades returns copies of the grenades still attached to the world.
func (w *World) Grenades() []physics.Grenade {
	out := make([]physics.Grenade, 0, len(w.grenades))
	for _, g := range w.grenades {
		if g.State() != physics.Destroyed {
			out = append(out, *g)
		}
	}
	return out
}

// Grenade looks up a live grenade by ID.
func (w *World) Grenade(id GrenadeID) (physics.Grenade, bool) {
	g, ok := w.byID[id]
	if !ok {
		return physics.Grenade{}, false
	}
	return *g, true
}

func (w *World) GrenadeCount() int {
	return len(w.byID)
}

func (w *World) Registry() *registry.Registry {
	return w.reg
}

func (w *World) Query() *query.Engine {
	return w.engine
}

func (w *World) Tick() uint64 {
	return w.tick
}
