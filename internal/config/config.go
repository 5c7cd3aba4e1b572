// Package config loads the application settings. Every field has a default;
// a config file only needs the values it changes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"sdfplay/internal/physics"
	"sdfplay/internal/registry"
	"sdfplay/internal/world"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const DefaultPath = "sdfplay.json"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// Simulation
	Capacity    int        `json:"capacity"`
	TickRate    int        `json:"tickRate"` // fixed simulation ticks per second
	BlendFactor float32    `json:"blendFactor"`
	MapPath     string     `json:"mapPath,omitempty"` // empty = built-in arena
	PreferGPU   bool       `json:"preferGPU"`
	PlayerStart rl.Vector3 `json:"playerStart"`

	Player  physics.PlayerConfig  `json:"player"`
	Grenade physics.GrenadeConfig `json:"grenade"`

	// Presentation
	WindowWidth  int32   `json:"windowWidth"`
	WindowHeight int32   `json:"windowHeight"`
	HueSpeed     float32 `json:"hueSpeed"` // background hue turns per second
	Audio        bool    `json:"audio"`
	Volume       float32 `json:"volume"`
}

func Default() Config {
	return Config{
		Capacity:    registry.DefaultCapacity,
		TickRate:    60,
		BlendFactor: 0,
		PreferGPU:   true,
		PlayerStart: rl.Vector3{X: 0, Y: 0, Z: -1.5},

		Player:  physics.DefaultPlayerConfig(),
		Grenade: physics.DefaultGrenadeConfig(),

		WindowWidth:  1280,
		WindowHeight: 720,
		HueSpeed:     0.05,
		Audio:        true,
		Volume:       0.5,
	}
}

// Load reads path over the defaults. A missing file is not an error.
// SDFPLAY_GPU and SDFPLAY_AUDIO override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("SDFPLAY_GPU"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PreferGPU = b
		}
	}
	if v := os.Getenv("SDFPLAY_AUDIO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Audio = b
		}
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Capacity < 1:
		return fmt.Errorf("%w: capacity %d", ErrInvalid, c.Capacity)
	case c.TickRate < 1:
		return fmt.Errorf("%w: tick rate %d", ErrInvalid, c.TickRate)
	case c.BlendFactor < 0:
		return fmt.Errorf("%w: negative blend factor %f", ErrInvalid, c.BlendFactor)
	case c.Player.Height <= 2*c.Player.Radius:
		return fmt.Errorf("%w: player height %f too small for radius %f", ErrInvalid, c.Player.Height, c.Player.Radius)
	case c.Player.GroundProbe <= 0:
		return fmt.Errorf("%w: ground probe %f", ErrInvalid, c.Player.GroundProbe)
	case c.Player.RingPoints < 1:
		return fmt.Errorf("%w: ring points %d", ErrInvalid, c.Player.RingPoints)
	case c.Grenade.Range <= 0:
		return fmt.Errorf("%w: grenade range %f", ErrInvalid, c.Grenade.Range)
	case c.Volume < 0 || c.Volume > 1:
		return fmt.Errorf("%w: volume %f", ErrInvalid, c.Volume)
	}
	return nil
}

// TickSeconds is the fixed simulation step.
func (c Config) TickSeconds() float32 {
	return 1 / float32(c.TickRate)
}

// World returns the simulation settings.
func (c Config) World() world.Config {
	return world.Config{
		Player:      c.Player,
		Grenade:     c.Grenade,
		PlayerStart: c.PlayerStart,
	}
}

// LoadMap returns the configured map or the built-in arena.
func (c Config) LoadMap() (*world.Map, error) {
	if c.MapPath == "" {
		return world.DefaultArena(), nil
	}
	return world.LoadMap(c.MapPath)
}
