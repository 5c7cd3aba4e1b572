package kernel

import (
	"math"

	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	// MaxDistance is reported when no shape takes part in the field.
	MaxDistance = 1000.0

	// SurfaceEpsilon is the contact skin used by the shapecast march.
	SurfaceEpsilon = 0.02

	normalEpsilon = 0.001
	maxMarchSteps = 64
)

// CPU is the reference kernel. It evaluates the same field as the GPU shader:
// spheres and boxes flagged for collision, joined with a smooth union.
type CPU struct{}

// NewCPU returns the reference kernel.
func NewCPU() *CPU {
	return &CPU{}
}

func (c *CPU) Dispatch(b Batch) ([]rl.Vector4, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	f := field{
		positions:  b.Positions,
		properties: b.Properties,
		blend:      max(b.Params[ParamBlend], 0),
	}

	out := make([]rl.Vector4, len(b.Points))
	switch b.Entry {
	case EntryCollision:
		for i, p := range b.Points {
			out[i] = f.collide(xyz(p))
		}
	case EntryShapecast:
		disp := b.Displacement()
		for i, p := range b.Points {
			out[i] = f.shapecast(xyz(p), disp)
		}
	}
	return out, nil
}

type field struct {
	positions  []rl.Vector4
	properties []rl.Vector4
	blend      float32
}

// distance evaluates the combined field at p.
func (f field) distance(p rl.Vector3) float32 {
	d := float32(MaxDistance)
	first := true
	for i, pos := range f.positions {
		if pos.W != registry.FlagCollision {
			continue
		}
		props := f.properties[i]
		local := rl.Vector3Subtract(p, xyz(pos))

		var di float32
		switch props.W {
		case registry.TypeSphere:
			di = sdSphere(local, props.X)
		case registry.TypeBox:
			di = sdBox(local, xyz(props))
		default:
			continue
		}

		if first {
			d = di
			first = false
		} else {
			d = smoothMin(d, di, f.blend)
		}
	}
	return d
}

func (f field) normal(p rl.Vector3) rl.Vector3 {
	e := float32(normalEpsilon)
	n := rl.NewVector3(
		f.distance(rl.NewVector3(p.X+e, p.Y, p.Z))-f.distance(rl.NewVector3(p.X-e, p.Y, p.Z)),
		f.distance(rl.NewVector3(p.X, p.Y+e, p.Z))-f.distance(rl.NewVector3(p.X, p.Y-e, p.Z)),
		f.distance(rl.NewVector3(p.X, p.Y, p.Z+e))-f.distance(rl.NewVector3(p.X, p.Y, p.Z-e)),
	)
	if rl.Vector3Length(n) == 0 {
		return rl.Vector3{}
	}
	return rl.Vector3Normalize(n)
}

func (f field) collide(p rl.Vector3) rl.Vector4 {
	d := f.distance(p)
	if d >= MaxDistance {
		return rl.NewVector4(0, 0, 0, d)
	}
	n := f.normal(p)
	return rl.NewVector4(n.X, n.Y, n.Z, d)
}

// shapecast sphere-traces p along disp. A contact only counts as an impact
// when the sweep is not moving away from the surface.
func (f field) shapecast(p, disp rl.Vector3) rl.Vector4 {
	noImpact := rl.NewVector4(0, 0, 0, 1)
	length := rl.Vector3Length(disp)
	if length == 0 {
		return noImpact
	}

	t := float32(0)
	for range maxMarchSteps {
		at := rl.Vector3Add(p, rl.Vector3Scale(disp, t))
		d := f.distance(at)

		if d < SurfaceEpsilon {
			n := f.normal(at)
			if rl.Vector3DotProduct(n, disp) <= 0 {
				return rl.NewVector4(n.X, n.Y, n.Z, t)
			}
			// leaving the surface, step through the skin
			d = SurfaceEpsilon
		}

		t += d / length
		if t >= 1 {
			break
		}
	}
	return noImpact
}

func sdSphere(p rl.Vector3, radius float32) float32 {
	return rl.Vector3Length(p) - radius
}

func sdBox(p, half rl.Vector3) float32 {
	q := rl.NewVector3(abs(p.X)-half.X, abs(p.Y)-half.Y, abs(p.Z)-half.Z)
	outside := rl.Vector3Length(rl.NewVector3(max(q.X, 0), max(q.Y, 0), max(q.Z, 0)))
	inside := min(max(q.X, max(q.Y, q.Z)), 0)
	return outside + inside
}

// smoothMin is the polynomial smooth minimum; k <= 0 is a hard min.
func smoothMin(a, b, k float32) float32 {
	if k <= 0 {
		return min(a, b)
	}
	h := clamp(0.5+0.5*(b-a)/k, 0, 1)
	return b*(1-h) + a*h - k*h*(1-h)
}

func xyz(v rl.Vector4) rl.Vector3 {
	return rl.NewVector3(v.X, v.Y, v.Z)
}

func abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

func clamp(x, lo, hi float32) float32 {
	return max(lo, min(x, hi))
}
