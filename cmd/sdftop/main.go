// sdftop runs the simulation in a terminal with a top-down view, on the CPU
// kernel. Terminals report presses but not releases, so a movement key stays
// held for a few ticks after each press.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"sdfplay/internal/audio"
	"sdfplay/internal/config"
	"sdfplay/internal/event"
	"sdfplay/internal/input"
	"sdfplay/internal/kernel"
	"sdfplay/internal/query"
	"sdfplay/internal/registry"
	"sdfplay/internal/world"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gdamore/tcell/v2"
)

const (
	holdTicks      = 8
	lookStep       = 40 // mouse pixels per arrow press
	flashTicks     = 12
	cellsPerUnitX  = 4
	cellsPerUnitZ  = 2
	eventQueueSize = 100
)

type flash struct {
	at   rl.Vector3
	left int
}

type Game struct {
	screen        tcell.Screen
	width, height int

	cfg   config.Config
	world *world.World
	sound *audio.Speaker

	// ticks each key stays held
	held    map[rune]int
	pending input.State

	explosions event.Queue[rl.Vector3]
	flashes    []flash
	err     error
}

func NewGame(cfg config.Config) (*Game, error) {
	reg := registry.New(cfg.Capacity)
	engine := query.NewEngine(kernel.NewCPU(), reg, cfg.BlendFactor)
	w, err := world.New(reg, engine, cfg.World())
	if err != nil {
		return nil, err
	}
	m, err := cfg.LoadMap()
	if err != nil {
		return nil, err
	}
	if _, err := m.Populate(reg); err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	g := &Game{
		screen: screen,
		cfg:    cfg,
		world:  w,
		held:   make(map[rune]int),
	}
	g.width, g.height = screen.Size()

	w.OnExplosion.AddListener(g.explosions.Push)

	if cfg.Audio {
		g.sound = audio.NewSpeaker(cfg.Volume)
		if err := g.sound.Initialize(); err != nil {
			// Non-fatal, game can run without sound
			log.Printf("Audio initialization failed: %v", err)
			g.sound = nil
		} else {
			w.OnExplosion.AddListener(g.playExplosion)
		}
	}

	return g, nil
}

func (g *Game) playExplosion(at rl.Vector3) {
	p := g.world.Player()
	l := audio.NewListener(p.Eye(), p.LookDirection(), rl.Vector3{Y: 1})
	g.sound.Play(l.Gains(at))
}

func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			g.pending.LookDelta.X -= lookStep
		case tcell.KeyRight:
			g.pending.LookDelta.X += lookStep
		case tcell.KeyUp:
			g.pending.LookDelta.Y -= lookStep
		case tcell.KeyDown:
			g.pending.LookDelta.Y += lookStep
		case tcell.KeyRune:
			switch r := ev.Rune(); r {
			case 'w', 'a', 's', 'd':
				g.held[r] = holdTicks
			case ' ':
				g.pending.Jump = true
			case 'f':
				g.pending.Fire = true
			case 'q':
				return false
			}
		}

	case *tcell.EventResize:
		g.width, g.height = g.screen.Size()
		g.screen.Sync()
	}

	return true
}

// nextInput builds the tick's input and ages the held keys.
func (g *Game) nextInput() input.State {
	in := g.pending
	in.Forward = g.held['w'] > 0
	in.Left = g.held['a'] > 0
	in.Back = g.held['s'] > 0
	in.Right = g.held['d'] > 0

	for r, n := range g.held {
		if n <= 1 {
			delete(g.held, r)
		} else {
			g.held[r] = n - 1
		}
	}
	g.pending = input.State{}
	return in
}

func (g *Game) update() bool {
	if err := g.world.Step(g.cfg.TickSeconds(), g.nextInput()); err != nil {
		g.err = err
		return false
	}

	for _, at := range g.explosions.Drain() {
		g.flashes = append(g.flashes, flash{at: at, left: flashTicks})
	}

	live := g.flashes[:0]
	for _, f := range g.flashes {
		if f.left--; f.left > 0 {
			live = append(live, f)
		}
	}
	g.flashes = live
	return true
}

func (g *Game) draw() {
	g.screen.Clear()

	p := g.world.Player()
	view := newView(p.Position, g.width, g.height-1)
	snap := g.world.Registry().Snapshot()

	for y := 0; y < view.height; y++ {
		for x := 0; x < view.width; x++ {
			i, ok := view.topShape(snap, x, y)
			if !ok {
				continue
			}
			c := snap.Colors[i]
			color := tcell.NewRGBColor(int32(c.X*255), int32(c.Y*255), int32(c.Z*255))
			g.screen.SetContent(x, y, shapeRune(snap.Properties[i].W), nil, tcell.StyleDefault.Foreground(color))
		}
	}

	for _, gr := range g.world.Grenades() {
		if x, y, ok := view.cell(gr.Position); ok {
			g.screen.SetContent(x, y, '*', nil, tcell.StyleDefault.Foreground(tcell.ColorFuchsia))
		}
	}
	for _, f := range g.flashes {
		if x, y, ok := view.cell(f.at); ok {
			g.screen.SetContent(x, y, 'X', nil, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))
		}
	}

	if x, y, ok := view.cell(p.Position); ok {
		g.screen.SetContent(x, y, facingRune(p.Forward()), nil, tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true))
	}

	reg := g.world.Registry()
	status := fmt.Sprintf(" tick %d | %s | pos (%.1f, %.1f, %.1f) | shapes %d/%d | grenades %d | wasd move, space jump, f fire, arrows look, esc quit",
		g.world.Tick(), p.State(), p.Position.X, p.Position.Y, p.Position.Z,
		reg.ActiveCount(), reg.Capacity(), g.world.GrenadeCount())
	for i, r := range status {
		if i >= g.width {
			break
		}
		g.screen.SetContent(i, g.height-1, r, nil, tcell.StyleDefault.Reverse(true))
	}

	g.screen.Show()
}

func (g *Game) run() {
	period := time.Second / time.Duration(g.cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, eventQueueSize)
	go func() {
		for {
			eventChan <- g.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}

		case <-ticker.C:
			if !g.update() {
				return
			}
			g.draw()
		}
	}
}

func (g *Game) cleanup() {
	if g.sound != nil {
		g.sound.Cleanup()
	}
	g.screen.Fini()
}

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// tcell owns the terminal, keep the log out of it
	if f, err := os.Create("sdftop.log"); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	game, err := NewGame(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	game.run()
	game.cleanup()

	if game.err != nil {
		fmt.Fprintf(os.Stderr, "Simulation stopped: %v\n", game.err)
		os.Exit(1)
	}
}
