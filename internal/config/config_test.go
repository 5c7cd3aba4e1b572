package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Capacity != 100 {
		t.Errorf("Expected capacity 100, got %d", cfg.Capacity)
	}
	if cfg.Grenade.Range != 50 {
		t.Errorf("Expected grenade range 50, got %f", cfg.Grenade.Range)
	}
	if cfg.TickSeconds() != float32(1)/60 {
		t.Errorf("Expected 1/60 tick, got %f", cfg.TickSeconds())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SDFPLAY_GPU", "")
	t.Setenv("SDFPLAY_AUDIO", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected default config, got %+v", cfg)
	}
}

func TestLoadPartialFile(t *testing.T) {
	t.Setenv("SDFPLAY_GPU", "")
	t.Setenv("SDFPLAY_AUDIO", "")
	path := filepath.Join(t.TempDir(), "cfg.json")
	os.WriteFile(path, []byte(`{"blendFactor": 0.25, "player": {"speed": 12}}`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BlendFactor != 0.25 {
		t.Errorf("Expected blend 0.25, got %f", cfg.BlendFactor)
	}
	if cfg.Player.Speed != 12 {
		t.Errorf("Expected speed 12, got %f", cfg.Player.Speed)
	}
	if cfg.Player.Gravity != Default().Player.Gravity {
		t.Errorf("Unset field lost its default: gravity %f", cfg.Player.Gravity)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SDFPLAY_GPU", "false")
	t.Setenv("SDFPLAY_AUDIO", "0")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PreferGPU || cfg.Audio {
		t.Errorf("Expected env to disable GPU and audio, got gpu=%v audio=%v", cfg.PreferGPU, cfg.Audio)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	os.WriteFile(path, []byte(`{"capacity": 0}`), 0644)

	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}

	os.WriteFile(path, []byte(`{"capacity": `), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv("SDFPLAY_GPU", "")
	t.Setenv("SDFPLAY_AUDIO", "")
	path := filepath.Join(t.TempDir(), "cfg.json")

	cfg := Default()
	cfg.MapPath = "assets/maps/arena.json"
	cfg.Grenade.Speed = 33
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfg {
		t.Errorf("Expected %+v, got %+v", cfg, loaded)
	}
}

func TestWorldConfigAndMap(t *testing.T) {
	cfg := Default()
	cfg.Player.JumpImpulse = 4

	if cfg.World().Player.JumpImpulse != 4 {
		t.Error("World config lost player settings")
	}

	m, err := cfg.LoadMap()
	if err != nil || len(m.Shapes) != 3 {
		t.Errorf("Expected built-in arena, got %v, %v", m, err)
	}
}
