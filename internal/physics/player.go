// Package physics holds the per-entity response rules. Rules never touch the
// shape registry; they consume query events and update their own state.
package physics

import (
	"math"

	"sdfplay/internal/input"
	"sdfplay/internal/query"
	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type PlayerState uint8

const (
	Airborne PlayerState = iota
	Grounded
)

func (s PlayerState) String() string {
	if s == Grounded {
		return "grounded"
	}
	return "airborne"
}

// Player is a first-person character. Position is at the feet.
type Player struct {
	Position rl.Vector3
	Velocity rl.Vector3
	Yaw      float32
	Pitch    float32

	cfg   PlayerConfig
	state PlayerState
}

func NewPlayer(position rl.Vector3, cfg PlayerConfig) *Player {
	return &Player{
		Position: position,
		Yaw:      -90.0,
		cfg:      cfg,
		state:    Airborne,
	}
}

func (p *Player) State() PlayerState {
	return p.state
}

func (p *Player) Grounded() bool {
	return p.state == Grounded
}

func (p *Player) Config() PlayerConfig {
	return p.cfg
}

// Look applies a mouse delta to yaw and pitch.
func (p *Player) Look(delta rl.Vector2) {
	p.Yaw += delta.X * p.cfg.LookSpeed
	p.Pitch -= delta.Y * p.cfg.LookSpeed

	// Clamp pitch
	if p.Pitch > 89 {
		p.Pitch = 89
	}
	if p.Pitch < -89 {
		p.Pitch = -89
	}
}

// Forward is the horizontal facing direction.
func (p *Player) Forward() rl.Vector3 {
	yawRad := float64(p.Yaw) * math.Pi / 180
	return rl.Vector3{
		X: float32(math.Cos(yawRad)),
		Y: 0,
		Z: float32(math.Sin(yawRad)),
	}
}

// Right is Forward rotated a quarter turn clockwise seen from above.
func (p *Player) Right() rl.Vector3 {
	yawRad := float64(p.Yaw) * math.Pi / 180
	return rl.Vector3{
		X: float32(-math.Sin(yawRad)),
		Y: 0,
		Z: float32(math.Cos(yawRad)),
	}
}

func (p *Player) LookDirection() rl.Vector3 {
	yawRad := float64(p.Yaw) * math.Pi / 180
	pitchRad := float64(p.Pitch) * math.Pi / 180
	return rl.Vector3{
		X: float32(math.Cos(yawRad) * math.Cos(pitchRad)),
		Y: float32(math.Sin(pitchRad)),
		Z: float32(math.Sin(yawRad) * math.Cos(pitchRad)),
	}
}

func (p *Player) Eye() rl.Vector3 {
	return rl.Vector3Add(p.Position, rl.Vector3{Y: p.cfg.EyeHeight})
}

func (p *Player) Center() rl.Vector3 {
	return rl.Vector3Add(p.Position, rl.Vector3{Y: p.cfg.Height / 2})
}

// WishDirection is the unit horizontal direction requested by input, or zero.
func (p *Player) WishDirection(in input.State) rl.Vector3 {
	forward, strafe := in.Axes()
	dir := rl.Vector3Add(
		rl.Vector3Scale(p.Forward(), forward),
		rl.Vector3Scale(p.Right(), strafe),
	)
	if rl.Vector3Length(dir) == 0 {
		return rl.Vector3{}
	}
	return rl.Vector3Normalize(dir)
}

// Steer applies input, jump and gravity to the velocity.
func (p *Player) Steer(in input.State, dt float32) {
	dir := p.WishDirection(in)

	if p.state == Grounded {
		if dir != (rl.Vector3{}) {
			// Only raise each axis toward the target speed, never cut it
			target := rl.Vector3Scale(dir, p.cfg.Speed)
			if abs(target.X) > abs(p.Velocity.X) {
				p.Velocity.X = target.X
			}
			if abs(target.Z) > abs(p.Velocity.Z) {
				p.Velocity.Z = target.Z
			}
		}
	} else {
		p.airSteer(dir, dt)
	}

	if in.Jump && p.state == Grounded {
		p.Velocity.Y = p.cfg.JumpImpulse
		p.state = Airborne
	}

	if p.state == Airborne {
		p.Velocity.Y -= p.cfg.Gravity * dt
	}
}

func (p *Player) airSteer(dir rl.Vector3, dt float32) {
	if dir == (rl.Vector3{}) {
		return
	}

	current := horizontal(p.Velocity)
	accel := rl.Vector3Scale(dir, p.cfg.AirAcceleration*dt)
	target := rl.Vector3Add(current, accel)

	var next rl.Vector3
	switch {
	case rl.Vector3Length(target) < p.cfg.AirSpeedCap:
		next = target
	case rl.Vector3DotProduct(current, accel) < 0:
		// countering current motion: damped full accel
		next = rl.Vector3Add(current, rl.Vector3Scale(accel, p.cfg.AirBrakeFactor))
	default:
		// at the cap only the turning part of the accel applies
		speed := rl.Vector3Length(current)
		along := rl.Vector3Normalize(current)
		ortho := rl.Vector3Subtract(accel, rl.Vector3Scale(along, rl.Vector3DotProduct(accel, along)))
		next = rl.Vector3Add(current, ortho)
		if limit := max(speed, p.cfg.AirSpeedCap); rl.Vector3Length(next) > limit {
			next = rl.Vector3Scale(rl.Vector3Normalize(next), limit)
		}
	}

	p.Velocity.X = next.X
	p.Velocity.Z = next.Z
}

// Resolve moves the player for one tick using the representative shapecast
// event of its point cloud.
func (p *Player) Resolve(ev query.ShapecastEvent, hit bool, dt float32) {
	if !hit || !ev.Impact() {
		// a zero sweep cannot see the ground, so a resting player stays put
		if p.Velocity == (rl.Vector3{}) {
			return
		}
		p.Position = rl.Vector3Add(p.Position, rl.Vector3Scale(p.Velocity, dt))
		p.state = Airborne
		return
	}

	w := ev.Fraction()
	n := ev.Normal()
	speed := rl.Vector3Length(p.Velocity)

	free := rl.Vector3Scale(p.Velocity, w*p.cfg.FreeDamping)
	remaining := rl.Vector3Scale(p.Velocity, 1-w)
	slid := rl.Vector3Subtract(remaining, rl.Vector3Scale(n, rl.Vector3DotProduct(remaining, n)))
	moved := rl.Vector3Add(free, slid)

	p.Position = rl.Vector3Add(p.Position, rl.Vector3Scale(moved, dt))

	retain := p.cfg.Momentum
	if speed >= p.cfg.FastThreshold {
		retain = p.cfg.FastMomentum
	}
	p.Velocity = rl.Vector3{
		X: moved.X * retain,
		Y: moved.Y,
		Z: moved.Z * retain,
	}

	if n.Y > p.cfg.GroundNormalY {
		p.state = Grounded
	} else {
		p.state = Airborne
	}
}

// Support drops a grounded player into the air when a short downward sweep
// finds nothing under it.
func (p *Player) Support(ev query.ShapecastEvent, hit bool) {
	if p.state == Grounded && (!hit || !ev.Impact()) {
		p.state = Airborne
	}
}

// Depenetrate pushes the player out of geometry it ended up inside and
// removes the velocity component driving it further in.
func (p *Player) Depenetrate(ev query.CollisionEvent) {
	if !ev.Colliding() {
		return
	}
	n := ev.Normal()
	if rl.Vector3Length(n) == 0 {
		return
	}

	p.Position = rl.Vector3Add(p.Position, rl.Vector3Scale(n, -ev.Depth()))
	if into := rl.Vector3DotProduct(p.Velocity, n); into < 0 {
		p.Velocity = rl.Vector3Subtract(p.Velocity, rl.Vector3Scale(n, into))
	}
	if n.Y > p.cfg.GroundNormalY {
		p.state = Grounded
	}
}

// ApplyExplosion kicks the player away from an explosion inside the blast
// radius. The impulse magnitude does not fall off with distance.
func (p *Player) ApplyExplosion(at rl.Vector3) bool {
	center := p.Center()
	if rl.Vector3Distance(center, at) >= p.cfg.ExplosionRadius {
		return false
	}

	away := rl.Vector3Subtract(center, at)
	if rl.Vector3Length(away) == 0 {
		away = rl.Vector3{Y: 1}
	}
	dir := rl.Vector3Add(rl.Vector3Normalize(away), p.cfg.ExplosionBias)
	if rl.Vector3Length(dir) == 0 {
		dir = rl.Vector3{Y: 1}
	}

	impulse := rl.Vector3Scale(rl.Vector3Normalize(dir), p.cfg.ExplosionBoost)
	p.Velocity = rl.Vector3Add(p.Velocity, impulse)
	p.state = Airborne
	return true
}

// CollisionPoints samples the body as a feet point plus lower, middle and
// upper rings around the vertical axis.
func (p *Player) CollisionPoints() []rl.Vector4 {
	n := max(p.cfg.RingPoints, 1)
	heights := [3]float32{
		p.cfg.Radius,
		p.cfg.Height / 2,
		p.cfg.Height - p.cfg.Radius,
	}

	points := make([]rl.Vector4, 0, 1+3*n)
	points = append(points, point(p.Position))
	for _, h := range heights {
		for i := range n {
			angle := float64(i) * 2 * math.Pi / float64(n)
			points = append(points, point(rl.Vector3{
				X: p.Position.X + p.cfg.Radius*float32(math.Cos(angle)),
				Y: p.Position.Y + h,
				Z: p.Position.Z + p.cfg.Radius*float32(math.Sin(angle)),
			}))
		}
	}
	return points
}

func point(v rl.Vector3) rl.Vector4 {
	return rl.NewVector4(v.X, v.Y, v.Z, registry.FlagCollision)
}

func horizontal(v rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: v.X, Z: v.Z}
}

func abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
