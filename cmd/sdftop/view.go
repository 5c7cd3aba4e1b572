package main

import (
	"math"

	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// view maps the XZ plane onto terminal cells, centered on a point. Screen
// rows grow toward +Z.
type view struct {
	center        rl.Vector3
	width, height int
}

func newView(center rl.Vector3, width, height int) view {
	return view{center: center, width: max(width, 0), height: max(height, 0)}
}

// world returns the XZ coordinates at the middle of a cell.
func (v view) world(x, y int) (float32, float32) {
	wx := v.center.X + (float32(x-v.width/2)+0.5)/cellsPerUnitX
	wz := v.center.Z + (float32(y-v.height/2)+0.5)/cellsPerUnitZ
	return wx, wz
}

func (v view) cell(p rl.Vector3) (int, int, bool) {
	x := int(math.Floor(float64((p.X-v.center.X)*cellsPerUnitX))) + v.width/2
	y := int(math.Floor(float64((p.Z-v.center.Z)*cellsPerUnitZ))) + v.height/2
	if x < 0 || y < 0 || x >= v.width || y >= v.height {
		return 0, 0, false
	}
	return x, y, true
}

// topShape returns the visible shape whose footprint covers the cell and
// reaches highest.
func (v view) topShape(snap registry.Snapshot, x, y int) (int, bool) {
	wx, wz := v.world(x, y)
	best, top := -1, float32(math.Inf(-1))

	for i := range snap.Len() {
		pos, props := snap.Positions[i], snap.Properties[i]
		if props.W == registry.TypeNone || pos.W == registry.FlagNoRender {
			continue
		}
		dx, dz := wx-pos.X, wz-pos.Z

		var height float32
		switch props.W {
		case registry.TypeSphere:
			r2 := props.X*props.X - dx*dx - dz*dz
			if r2 < 0 {
				continue
			}
			height = pos.Y + float32(math.Sqrt(float64(r2)))
		case registry.TypeBox:
			if abs(dx) > props.X || abs(dz) > props.Z {
				continue
			}
			height = pos.Y + props.Y
		default:
			continue
		}

		if height > top {
			best, top = i, height
		}
	}
	return best, best >= 0
}

func shapeRune(tag float32) rune {
	if tag == registry.TypeSphere {
		return '▒'
	}
	return '█'
}

// facingRune picks the arrow closest to a horizontal direction.
func facingRune(dir rl.Vector3) rune {
	if abs(dir.X) >= abs(dir.Z) {
		if dir.X >= 0 {
			return '>'
		}
		return '<'
	}
	if dir.Z >= 0 {
		return 'v'
	}
	return '^'
}

func abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
