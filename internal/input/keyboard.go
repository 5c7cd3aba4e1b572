package input

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Keyboard reads WASD, space and the mouse through raylib.
// It must be polled from the thread that owns the window.
type Keyboard struct {
	ForwardKey int32
	BackKey    int32
	LeftKey    int32
	RightKey   int32
	JumpKey    int32
}

func NewKeyboard() *Keyboard {
	return &Keyboard{
		ForwardKey: rl.KeyW,
		BackKey:    rl.KeyS,
		LeftKey:    rl.KeyA,
		RightKey:   rl.KeyD,
		JumpKey:    rl.KeySpace,
	}
}

func (k *Keyboard) Poll() State {
	return State{
		Forward:   rl.IsKeyDown(k.ForwardKey),
		Back:      rl.IsKeyDown(k.BackKey),
		Left:      rl.IsKeyDown(k.LeftKey),
		Right:     rl.IsKeyDown(k.RightKey),
		Jump:      rl.IsKeyDown(k.JumpKey),
		Fire:      rl.IsMouseButtonPressed(rl.MouseLeftButton),
		LookDelta: rl.GetMouseDelta(),
	}
}
