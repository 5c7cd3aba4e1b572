package physics

import (
	"sdfplay/internal/query"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// GrenadeID identifies a grenade for its whole life. IDs are never reused,
// unlike registry addresses.
type GrenadeID uint64

type GrenadeState uint8

const (
	Flying GrenadeState = iota
	Exploded
	Destroyed
)

func (s GrenadeState) String() string {
	switch s {
	case Flying:
		return "flying"
	case Exploded:
		return "exploded"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// Grenade is a projectile that owns one registry slot from spawn until it
// is destroyed. Every transition checks the current state, so a grenade
// explodes and is destroyed at most once.
type Grenade struct {
	ID       GrenadeID
	Address  registry.Address
	Position rl.Vector3
	Velocity rl.Vector3
	Origin   rl.Vector3

	Range float32

	state GrenadeState
}

func NewGrenade(id GrenadeID, addr registry.Address, position, velocity rl.Vector3, cfg GrenadeConfig) *Grenade {
	return &Grenade{
		ID:       id,
		Address:  addr,
		Position: position,
		Velocity: velocity,
		Origin:   position,
		Range:    cfg.Range,
		state:    Flying,
	}
}

func (g *Grenade) State() GrenadeState {
	return g.state
}

func (g *Grenade) Flying() bool {
	return g.state == Flying
}

// Traveled is the straight-line distance from the spawn point.
func (g *Grenade) Traveled() float32 {
	return rl.Vector3Distance(g.Position, g.Origin)
}

// SamplePoint is the single query point of the grenade.
func (g *Grenade) SamplePoint() rl.Vector4 {
	return point(g.Position)
}

// Collide explodes the grenade when the event is a penetration. Reports
// whether this call caused the explosion.
func (g *Grenade) Collide(ev query.CollisionEvent) bool {
	if g.state != Flying || !ev.Colliding() {
		return false
	}
	g.state = Exploded
	return true
}

// Advance integrates one tick of flight, or explodes the grenade once it
// has flown past its range. Reports whether this call caused the explosion.
func (g *Grenade) Advance(dt float32) bool {
	if g.state != Flying {
		return false
	}
	if g.Traveled() > g.Range {
		g.state = Exploded
		return true
	}
	g.Position = rl.Vector3Add(g.Position, rl.Vector3Scale(g.Velocity, dt))
	return false
}

// Expire moves an exploded grenade to Destroyed.
func (g *Grenade) Expire() bool {
	if g.state != Exploded {
		return false
	}
	g.state = Destroyed
	return true
}

// Remove destroys the grenade without an explosion.
func (g *Grenade) Remove() bool {
	if g.state == Destroyed {
		return false
	}
	g.state = Destroyed
	return true
}

// GrenadeShape returns the registry fields for a grenade at pos.
func GrenadeShape(pos rl.Vector3, cfg GrenadeConfig) registry.Shape {
	return registry.Shape{
		Position:   rl.NewVector4(pos.X, pos.Y, pos.Z, registry.FlagNoCollision),
		Properties: rl.NewVector4(cfg.Radius, 0, 0, registry.TypeSphere),
		Color:      cfg.Color,
	}
}
