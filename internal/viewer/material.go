package viewer

import (
	"math"

	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Material is the per-frame parameter block handed to the renderer: the
// shape arrays plus the scene-wide blend and background color.
type Material struct {
	BlendFactor float32
	Hue         float32 // background hue in [0, 1)
	Background  rl.Vector3

	Positions  []rl.Vector4
	Properties []rl.Vector4
	Colors     []rl.Vector4
}

// Update copies the registry snapshot into the block and advances the
// background hue by hueSpeed turns per second.
func (m *Material) Update(snap registry.Snapshot, blend, hueSpeed, dt float32) {
	m.BlendFactor = max(blend, 0)
	m.Positions = snap.Positions
	m.Properties = snap.Properties
	m.Colors = snap.Colors

	h := float64(m.Hue + hueSpeed*dt)
	m.Hue = float32(h - math.Floor(h))
	m.Background = HSV(m.Hue, 0.5, 0.25)
}

// Visible reports whether slot i holds a shape the renderer should draw.
func (m *Material) Visible(i int) bool {
	return m.Properties[i].W != registry.TypeNone && m.Positions[i].W != registry.FlagNoRender
}

// HSV converts hue/saturation/value in [0,1] to RGB in [0,1].
func HSV(h, s, v float32) rl.Vector3 {
	h6 := float64(h-float32(math.Floor(float64(h)))) * 6
	sector := int(h6) % 6
	f := float32(h6 - math.Floor(h6))

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch sector {
	case 0:
		return rl.Vector3{X: v, Y: t, Z: p}
	case 1:
		return rl.Vector3{X: q, Y: v, Z: p}
	case 2:
		return rl.Vector3{X: p, Y: v, Z: t}
	case 3:
		return rl.Vector3{X: p, Y: q, Z: v}
	case 4:
		return rl.Vector3{X: t, Y: p, Z: v}
	}
	return rl.Vector3{X: v, Y: p, Z: q}
}

// toColor converts a normalized RGB vector to an opaque raylib color.
func toColor(c rl.Vector3) rl.Color {
	clamp := func(x float32) uint8 {
		return uint8(max(0, min(x, 1)) * 255)
	}
	return rl.NewColor(clamp(c.X), clamp(c.Y), clamp(c.Z), 255)
}
