// Package viewer draws the shape registry and a small HUD with raylib.
package viewer

import (
	"fmt"

	"sdfplay/internal/physics"
	"sdfplay/internal/registry"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	colorBgDark    = rl.NewColor(15, 15, 20, 255)
	colorBgElement = rl.NewColor(30, 30, 40, 255)
	colorBgHover   = rl.NewColor(40, 40, 55, 255)
	colorAccent    = rl.NewColor(108, 99, 255, 255)
	colorText      = rl.NewColor(200, 200, 215, 255)
)

// Stats is the HUD readout for one frame.
type Stats struct {
	Tick     uint64
	Active   int
	Capacity int
	Grenades int
	Player   physics.PlayerState
	Kernel   string
}

type Viewer struct {
	Material Material
	Outlines bool

	camera rl.Camera3D
}

func New() *Viewer {
	initRayguiStyle()
	return &Viewer{
		camera: rl.Camera3D{
			Up:         rl.Vector3{Y: 1},
			Fovy:       70,
			Projection: rl.CameraPerspective,
		},
	}
}

func initRayguiStyle() {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgDark))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorText))
	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_FOCUSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 15)
}

// Follow places the camera at the player's eye.
func (v *Viewer) Follow(p *physics.Player) {
	eye := p.Eye()
	v.camera.Position = eye
	v.camera.Target = rl.Vector3Add(eye, p.LookDirection())
}

// Draw renders one frame. It returns the blend factor after HUD edits.
func (v *Viewer) Draw(stats Stats) float32 {
	rl.BeginDrawing()
	rl.ClearBackground(toColor(v.Material.Background))

	rl.BeginMode3D(v.camera)
	v.drawShapes()
	rl.EndMode3D()

	blend := v.drawHUD(stats)
	rl.EndDrawing()
	return blend
}

func (v *Viewer) drawShapes() {
	m := &v.Material
	for i := range m.Positions {
		if !m.Visible(i) {
			continue
		}
		pos := rl.Vector3{X: m.Positions[i].X, Y: m.Positions[i].Y, Z: m.Positions[i].Z}
		props := m.Properties[i]
		c := m.Colors[i]
		color := toColor(rl.Vector3{X: c.X, Y: c.Y, Z: c.Z})

		switch props.W {
		case registry.TypeSphere:
			rl.DrawSphere(pos, props.X, color)
			if v.Outlines {
				rl.DrawSphereWires(pos, props.X, 8, 8, rl.Fade(rl.Black, 0.4))
			}
		case registry.TypeBox:
			size := rl.Vector3{X: props.X * 2, Y: props.Y * 2, Z: props.Z * 2}
			rl.DrawCubeV(pos, size, color)
			if v.Outlines {
				rl.DrawCubeWiresV(pos, size, rl.Fade(rl.Black, 0.4))
			}
		}
	}
}

func (v *Viewer) drawHUD(s Stats) float32 {
	rl.DrawText("WASD to move, Space to jump, Mouse to look, LMB to throw", 10, 10, 20, rl.RayWhite)
	rl.DrawFPS(10, 35)

	rl.DrawText(fmt.Sprintf("Tick %d  |  %s kernel", s.Tick, s.Kernel), 10, 60, 16, rl.Lime)
	rl.DrawText(fmt.Sprintf("Shapes %d/%d  |  Grenades %d", s.Active, s.Capacity, s.Grenades), 10, 80, 16, rl.Lime)
	rl.DrawText(fmt.Sprintf("Player %s", s.Player), 10, 100, 16, rl.Lime)

	blend := gui.Slider(rl.Rectangle{X: 60, Y: 125, Width: 160, Height: 18}, "Blend", fmt.Sprintf("%.2f", v.Material.BlendFactor), v.Material.BlendFactor, 0, 2)
	v.Outlines = gui.CheckBox(rl.Rectangle{X: 60, Y: 150, Width: 18, Height: 18}, "Outlines", v.Outlines)
	return blend
}
