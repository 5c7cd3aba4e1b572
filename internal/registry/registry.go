// Package registry holds the fixed-capacity shape arena read by the SDF kernel.
// Shapes live at stable integer addresses so the kernel can index flat arrays.
package registry

import (
	"errors"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// DefaultCapacity matches the size of the kernel's shape buffers.
const DefaultCapacity = 100

// Behavior flags stored in Shape.Position.W
const (
	FlagCollision   float32 = 0.0
	FlagNoCollision float32 = 1.0
	FlagNoRender    float32 = 2.0
)

// Shape type tags stored in Shape.Properties.W. Only the kernel interprets them.
const (
	TypeNone   float32 = 0.0
	TypeSphere float32 = 1.0
	TypeBox    float32 = 2.0
)

var (
	ErrFull           = errors.New("registry full")
	ErrInvalidAddress = errors.New("invalid shape address")
	ErrDoubleFree     = errors.New("shape double free")
)

// Address is a slot index in [0, Capacity).
type Address int

// Shape is one registry entry.
// Position: xyz = world position, w = behavior flag
// Properties: xyz = size parameters, w = type tag
// Color: xyz = RGB, w = render flag
type Shape struct {
	Position   rl.Vector4
	Properties rl.Vector4
	Color      rl.Vector4
}

// Snapshot is the dense kernel-facing layout, free slots included as zeroes.
type Snapshot struct {
	Positions  []rl.Vector4
	Properties []rl.Vector4
	Colors     []rl.Vector4
}

// Len returns the number of slots in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Positions)
}

type Registry struct {
	positions  []rl.Vector4
	properties []rl.Vector4
	colors     []rl.Vector4
	used       []bool
	active     int
}

// New creates a registry with a fixed number of slots.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		positions:  make([]rl.Vector4, capacity),
		properties: make([]rl.Vector4, capacity),
		colors:     make([]rl.Vector4, capacity),
		used:       make([]bool, capacity),
	}
}

// Allocate stores a shape in the lowest free slot and returns its address.
func (r *Registry) Allocate(position, properties, color rl.Vector4) (Address, error) {
	if r.active == len(r.used) {
		return -1, fmt.Errorf("cannot allocate shape: %w (%d slots)", ErrFull, len(r.used))
	}

	for i, used := range r.used {
		if used {
			continue
		}
		r.positions[i] = position
		r.properties[i] = properties
		r.colors[i] = color
		r.used[i] = true
		r.active++
		return Address(i), nil
	}

	// active_count says there is room but no slot is free
	return -1, fmt.Errorf("cannot allocate shape: %w (no free slot)", ErrFull)
}

// Update overwrites all three fields of an occupied slot.
func (r *Registry) Update(addr Address, position, properties, color rl.Vector4) error {
	if err := r.checkOccupied(addr); err != nil {
		return err
	}
	r.positions[addr] = position
	r.properties[addr] = properties
	r.colors[addr] = color
	return nil
}

// UpdatePosition moves an occupied shape, keeping its behavior flag.
func (r *Registry) UpdatePosition(addr Address, position rl.Vector3) error {
	if err := r.checkOccupied(addr); err != nil {
		return err
	}
	flag := r.positions[addr].W
	r.positions[addr] = rl.NewVector4(position.X, position.Y, position.Z, flag)
	return nil
}

// Release zeroes a slot and marks it free.
func (r *Registry) Release(addr Address) error {
	if !r.inRange(addr) {
		return fmt.Errorf("release %d: %w", addr, ErrInvalidAddress)
	}
	if !r.used[addr] {
		return fmt.Errorf("release %d: %w", addr, ErrDoubleFree)
	}

	r.positions[addr] = rl.Vector4{}
	r.properties[addr] = rl.Vector4{}
	r.colors[addr] = rl.Vector4{}
	r.used[addr] = false
	r.active--
	return nil
}

// Get returns the shape at addr if the slot is occupied.
func (r *Registry) Get(addr Address) (Shape, bool) {
	if !r.Occupied(addr) {
		return Shape{}, false
	}
	return Shape{
		Position:   r.positions[addr],
		Properties: r.properties[addr],
		Color:      r.colors[addr],
	}, true
}

// Occupied reports whether addr holds a shape.
func (r *Registry) Occupied(addr Address) bool {
	return r.inRange(addr) && r.used[addr]
}

// Snapshot copies the three arrays in address order.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Positions:  make([]rl.Vector4, len(r.positions)),
		Properties: make([]rl.Vector4, len(r.properties)),
		Colors:     make([]rl.Vector4, len(r.colors)),
	}
	copy(s.Positions, r.positions)
	copy(s.Properties, r.properties)
	copy(s.Colors, r.colors)
	return s
}

func (r *Registry) ActiveCount() int {
	return r.active
}

func (r *Registry) Capacity() int {
	return len(r.used)
}

func (r *Registry) inRange(addr Address) bool {
	return addr >= 0 && int(addr) < len(r.used)
}

func (r *Registry) checkOccupied(addr Address) error {
	if !r.inRange(addr) {
		return fmt.Errorf("update %d: %w (out of range)", addr, ErrInvalidAddress)
	}
	if !r.used[addr] {
		return fmt.Errorf("update %d: %w (slot is free)", addr, ErrInvalidAddress)
	}
	return nil
}
