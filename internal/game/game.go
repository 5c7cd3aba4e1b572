// Package game runs the windowed prototype: raylib window, fixed-step
// simulation, explosion audio and the debug viewer.
package game

import (
	"fmt"
	"log"
	"time"

	"sdfplay/internal/audio"
	"sdfplay/internal/compute"
	"sdfplay/internal/config"
	"sdfplay/internal/input"
	"sdfplay/internal/kernel"
	"sdfplay/internal/query"
	"sdfplay/internal/registry"
	"sdfplay/internal/viewer"
	"sdfplay/internal/world"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// maxStepsPerFrame bounds catch-up after a long frame.
const maxStepsPerFrame = 5

type Game struct {
	Config config.Config
	World  *world.World
	Viewer *viewer.Viewer

	kernel     kernel.Kernel
	kernelName string
	input      input.Source
	audio      *audio.Engine

	accumulator float32
	pending     input.State // edge-triggered input not yet consumed by a tick

	// Debug timing (ms)
	stepMs float64
}

func New(cfg config.Config) *Game {
	return &Game{Config: cfg}
}

func (g *Game) Run() error {
	rl.SetConfigFlags(rl.FlagWindowHighdpi)
	rl.InitWindow(g.Config.WindowWidth, g.Config.WindowHeight, "sdfplay")
	defer rl.CloseWindow()

	rl.SetTargetFPS(120)
	rl.DisableCursor()

	if err := g.initialize(); err != nil {
		return err
	}
	defer g.shutdown()

	for !rl.WindowShouldClose() {
		if err := g.Update(); err != nil {
			return err
		}
		g.Draw()
	}
	return nil
}

func (g *Game) initialize() error {
	cfg := g.Config

	g.kernel = compute.NewDefaultKernel(cfg.Capacity, cfg.PreferGPU)
	g.kernelName = "CPU"
	if _, ok := g.kernel.(*compute.SDFKernel); ok {
		g.kernelName = "GPU"
	}

	reg := registry.New(cfg.Capacity)
	engine := query.NewEngine(g.kernel, reg, cfg.BlendFactor)

	// The anchor goes in first so it keeps the lowest slot
	w, err := world.New(reg, engine, cfg.World())
	if err != nil {
		return err
	}

	m, err := cfg.LoadMap()
	if err != nil {
		return err
	}
	addrs, err := m.Populate(reg)
	if err != nil {
		return err
	}
	log.Printf("Game: loaded map %q (%d shapes)", m.Name, len(addrs))

	g.World = w
	g.Viewer = viewer.New()
	g.input = input.NewKeyboard()

	if cfg.Audio {
		a, err := audio.New(cfg.Volume)
		if err != nil {
			log.Printf("Game: audio disabled: %v", err)
		} else {
			g.audio = a
			w.OnExplosion.AddListener(a.Explosion)
		}
	}

	w.OnGrenadeSpawned.AddListener(func(id world.GrenadeID) {
		log.Printf("Game: grenade %d thrown", id)
	})
	return nil
}

func (g *Game) shutdown() {
	if g.audio != nil {
		g.audio.Close()
	}
	if k, ok := g.kernel.(*compute.SDFKernel); ok {
		k.Release()
	}
}

// Update runs as many fixed ticks as the frame time allows.
func (g *Game) Update() error {
	start := time.Now()
	dt := g.Config.TickSeconds()

	in := g.input.Poll()
	g.pending.Jump = g.pending.Jump || in.Jump
	g.pending.Fire = g.pending.Fire || in.Fire
	g.pending.LookDelta = rl.Vector2Add(g.pending.LookDelta, in.LookDelta)

	g.accumulator += rl.GetFrameTime()
	if g.accumulator > dt*maxStepsPerFrame {
		g.accumulator = dt * maxStepsPerFrame
	}

	for g.accumulator >= dt {
		tick := in
		tick.Jump = g.pending.Jump
		tick.Fire = g.pending.Fire
		tick.LookDelta = g.pending.LookDelta
		g.pending = input.State{}

		if err := g.World.Step(dt, tick); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
		g.accumulator -= dt
	}

	p := g.World.Player()
	if g.audio != nil {
		g.audio.SetListener(p.Eye(), p.LookDirection(), rl.Vector3{Y: 1})
	}

	g.stepMs = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

func (g *Game) Draw() {
	reg := g.World.Registry()
	engine := g.World.Query()

	g.Viewer.Follow(g.World.Player())
	g.Viewer.Material.Update(reg.Snapshot(), engine.BlendFactor, g.Config.HueSpeed, rl.GetFrameTime())

	engine.BlendFactor = g.Viewer.Draw(viewer.Stats{
		Tick:     g.World.Tick(),
		Active:   reg.ActiveCount(),
		Capacity: reg.Capacity(),
		Grenades: g.World.GrenadeCount(),
		Player:   g.World.Player().State(),
		Kernel:   fmt.Sprintf("%s %.2fms", g.kernelName, g.stepMs),
	})
}
