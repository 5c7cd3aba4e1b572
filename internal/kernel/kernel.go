// Package kernel defines the batched SDF evaluation boundary.
//
// A kernel takes a batch of query points plus the registry's flat shape arrays
// and returns one vec4 per point. The collision entry point writes the outward
// normal in xyz and the signed distance in w. The shapecast entry point sweeps
// each point by a displacement and writes the impact normal in xyz and the
// travelled fraction in w (1 = no impact).
package kernel

import (
	"errors"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Entry selects the kernel entry point.
type Entry uint8

const (
	EntryCollision Entry = iota
	EntryShapecast
)

func (e Entry) String() string {
	switch e {
	case EntryCollision:
		return "collision"
	case EntryShapecast:
		return "shapecast"
	}
	return fmt.Sprintf("entry(%d)", uint8(e))
}

// Scalar parameter layout
const (
	ParamBlend = 0 // smooth union radius, 0 = hard union
	ParamDispX = 1 // shapecast displacement
	ParamDispY = 2
	ParamDispZ = 3

	CollisionParams = 1
	ShapecastParams = 4
)

var (
	ErrUnavailable   = errors.New("kernel unavailable")
	ErrMisconfigured = errors.New("kernel misconfigured")
)

// Batch is one dispatch worth of input.
type Batch struct {
	Entry      Entry
	Points     []rl.Vector4
	Positions  []rl.Vector4
	Properties []rl.Vector4
	Params     []float32
}

// Validate checks the batch against the buffer contract.
func (b Batch) Validate() error {
	if len(b.Positions) != len(b.Properties) {
		return fmt.Errorf("%w: %d positions, %d properties", ErrMisconfigured, len(b.Positions), len(b.Properties))
	}
	want := CollisionParams
	switch b.Entry {
	case EntryCollision:
	case EntryShapecast:
		want = ShapecastParams
	default:
		return fmt.Errorf("%w: unknown entry %v", ErrMisconfigured, b.Entry)
	}
	if len(b.Params) < want {
		return fmt.Errorf("%w: %s needs %d params, got %d", ErrMisconfigured, b.Entry, want, len(b.Params))
	}
	return nil
}

// Displacement returns the shapecast sweep vector.
func (b Batch) Displacement() rl.Vector3 {
	if len(b.Params) < ShapecastParams {
		return rl.Vector3{}
	}
	return rl.NewVector3(b.Params[ParamDispX], b.Params[ParamDispY], b.Params[ParamDispZ])
}

// Kernel evaluates a batch synchronously.
type Kernel interface {
	Dispatch(b Batch) ([]rl.Vector4, error)
}
