package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// PlayerConfig tunes the player response rule.
type PlayerConfig struct {
	// Movement
	Speed           float32 `json:"speed"`           // grounded run speed
	AirAcceleration float32 `json:"airAcceleration"` // steering accel while airborne
	AirSpeedCap     float32 `json:"airSpeedCap"`     // horizontal speed above which air accel only turns
	AirBrakeFactor  float32 `json:"airBrakeFactor"`  // accel scale when countering motion over the cap
	JumpImpulse     float32 `json:"jumpImpulse"`
	Gravity         float32 `json:"gravity"`

	// Contact response
	FreeDamping   float32 `json:"freeDamping"`   // scale on the pre-impact part of the move
	Momentum      float32 `json:"momentum"`      // horizontal retention below FastThreshold
	FastMomentum  float32 `json:"fastMomentum"`  // horizontal retention at or above FastThreshold
	FastThreshold float32 `json:"fastThreshold"` // speed separating slow and fast slides
	GroundNormalY float32 `json:"groundNormalY"` // min normal.y for a floor-like surface
	GroundProbe   float32 `json:"groundProbe"`   // downward sweep that keeps a still player grounded

	// Explosions
	ExplosionRadius float32    `json:"explosionRadius"`
	ExplosionBoost  float32    `json:"explosionBoost"`
	ExplosionBias   rl.Vector3 `json:"explosionBias"`

	// Body and camera
	Height     float32 `json:"height"`
	Radius     float32 `json:"radius"`
	EyeHeight  float32 `json:"eyeHeight"`
	RingPoints int     `json:"ringPoints"`
	LookSpeed  float32 `json:"lookSpeed"`
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Speed:           8.0,
		AirAcceleration: 30.0,
		AirSpeedCap:     8.0,
		AirBrakeFactor:  0.75,
		JumpImpulse:     8.0,
		Gravity:         20.0,

		FreeDamping:   0.9,
		Momentum:      0.5,
		FastMomentum:  0.75,
		FastThreshold: 2.0,
		GroundNormalY: 0.5,
		GroundProbe:   0.05,

		ExplosionRadius: 5.0,
		ExplosionBoost:  12.0,
		ExplosionBias:   rl.Vector3{X: 0, Y: 0.5, Z: 0},

		Height:     1.8,
		Radius:     0.4,
		EyeHeight:  1.6,
		RingPoints: 8,
		LookSpeed:  0.1,
	}
}

// GrenadeConfig tunes spawned grenades and the shape they own.
type GrenadeConfig struct {
	Speed       float32    `json:"speed"`
	Range       float32    `json:"range"` // flight distance from spawn before it explodes
	SpawnOffset float32    `json:"spawnOffset"`
	Radius      float32    `json:"radius"`
	Color       rl.Vector4 `json:"color"`
}

func DefaultGrenadeConfig() GrenadeConfig {
	return GrenadeConfig{
		Speed:       20.0,
		Range:       50.0,
		SpawnOffset: 1.0,
		Radius:      0.1,
		Color:       rl.Vector4{X: 1, Y: 0, Z: 1, W: 0},
	}
}
