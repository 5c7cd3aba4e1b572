package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"sdfplay/internal/registry"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// --- JSON types ---

type Map struct {
	Name   string     `json:"name,omitempty"`
	Shapes []ShapeDef `json:"shapes"`
}

// ShapeDef is one static shape. Size is the sphere radius in size[0] or the
// box half extents.
type ShapeDef struct {
	Name     string      `json:"name,omitempty"`
	Type     string      `json:"type"`
	Position [3]float32  `json:"position"`
	Size     [3]float32  `json:"size"`
	Color    string      `json:"color,omitempty"`
	RGB      *[3]float32 `json:"rgb,omitempty"`
	Flag     string      `json:"flag,omitempty"`
}

var ErrBadShape = errors.New("bad shape definition")

// --- Color mapping ---

var colorByName = map[string]rl.Color{
	"Red":       rl.Red,
	"Blue":      rl.Blue,
	"Green":     rl.Green,
	"Purple":    rl.Purple,
	"Orange":    rl.Orange,
	"Yellow":    rl.Yellow,
	"Pink":      rl.Pink,
	"SkyBlue":   rl.SkyBlue,
	"Lime":      rl.Lime,
	"Magenta":   rl.Magenta,
	"White":     rl.White,
	"LightGray": rl.LightGray,
	"Gray":      rl.Gray,
	"DarkGray":  rl.DarkGray,
	"Black":     rl.Black,
	"Brown":     rl.Brown,
	"Gold":      rl.Gold,
}

var typeByName = map[string]float32{
	"sphere": registry.TypeSphere,
	"box":    registry.TypeBox,
}

var flagByName = map[string]float32{
	"":            registry.FlagCollision,
	"collision":   registry.FlagCollision,
	"nocollision": registry.FlagNoCollision,
	"norender":    registry.FlagNoRender,
}

// color resolves the shape color: an explicit RGB triple wins over a name,
// unknown names fall back to white. W is left 0.
func (d ShapeDef) color() rl.Vector4 {
	if d.RGB != nil {
		return rl.NewVector4(d.RGB[0], d.RGB[1], d.RGB[2], 0)
	}
	c, ok := colorByName[d.Color]
	if !ok {
		c = rl.White
	}
	return rl.NewVector4(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, 0)
}

// Shape converts the definition to registry fields.
func (d ShapeDef) Shape() (registry.Shape, error) {
	tag, ok := typeByName[strings.ToLower(d.Type)]
	if !ok {
		return registry.Shape{}, fmt.Errorf("%w: %q: unknown type %q", ErrBadShape, d.Name, d.Type)
	}
	flag, ok := flagByName[strings.ToLower(d.Flag)]
	if !ok {
		return registry.Shape{}, fmt.Errorf("%w: %q: unknown flag %q", ErrBadShape, d.Name, d.Flag)
	}
	if d.Size[0] <= 0 || (tag == registry.TypeBox && (d.Size[1] <= 0 || d.Size[2] <= 0)) {
		return registry.Shape{}, fmt.Errorf("%w: %q: size must be positive", ErrBadShape, d.Name)
	}

	return registry.Shape{
		Position:   rl.NewVector4(d.Position[0], d.Position[1], d.Position[2], flag),
		Properties: rl.NewVector4(d.Size[0], d.Size[1], d.Size[2], tag),
		Color:      d.color(),
	}, nil
}

// DefaultArena is the built-in level used when no map file is configured.
func DefaultArena() *Map {
	return &Map{
		Name: "arena",
		Shapes: []ShapeDef{
			{Name: "dome", Type: "sphere", Position: [3]float32{0, -4.75, 0}, Size: [3]float32{3, 0, 0}, Color: "Red"},
			{Name: "floor", Type: "box", Position: [3]float32{0, -3, 0}, Size: [3]float32{5, 0.5, 5}, Color: "Blue"},
			{Name: "wall", Type: "box", Position: [3]float32{3, -2, 0}, Size: [3]float32{1, 1, 5}, Color: "White"},
		},
	}
}

// --- Loading ---

func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return ParseMap(data)
}

func ParseMap(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	for _, d := range m.Shapes {
		if _, err := d.Shape(); err != nil {
			return nil, fmt.Errorf("parse map: %w", err)
		}
	}
	return &m, nil
}

// Populate allocates every shape of the map. Either all shapes are added or,
// on error, none are.
func (m *Map) Populate(reg *registry.Registry) ([]registry.Address, error) {
	addrs := make([]registry.Address, 0, len(m.Shapes))
	for _, d := range m.Shapes {
		s, err := d.Shape()
		if err == nil {
			var addr registry.Address
			addr, err = reg.Allocate(s.Position, s.Properties, s.Color)
			if err == nil {
				addrs = append(addrs, addr)
				continue
			}
		}

		for _, a := range addrs {
			if rerr := reg.Release(a); rerr != nil {
				log.Printf("World: ERROR roll back shape %d: %v", a, rerr)
			}
		}
		return nil, fmt.Errorf("populate map %q: %w", m.Name, err)
	}
	return addrs, nil
}

// --- Saving ---

func (m *Map) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal map: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	return nil
}
