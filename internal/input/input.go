// Package input turns device state into a per-tick movement snapshot.
package input

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// State is the input consumed by one simulation tick.
type State struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Jump    bool
	Fire    bool

	// Mouse movement since the previous tick, in pixels
	LookDelta rl.Vector2
}

// Source produces one State per tick.
type Source interface {
	Poll() State
}

// Moving reports whether any movement key is held.
func (s State) Moving() bool {
	return s.Forward || s.Back || s.Left || s.Right
}

// Axes returns the forward and strafe axes in [-1, 1].
// Opposing keys cancel out.
func (s State) Axes() (forward, strafe float32) {
	if s.Forward {
		forward++
	}
	if s.Back {
		forward--
	}
	if s.Right {
		strafe++
	}
	if s.Left {
		strafe--
	}
	return forward, strafe
}
