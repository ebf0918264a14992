// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all arena and server settings.
//
// IMPORTANT: When tuning balance values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the world geometry shared by physics and spawn placement.
type ArenaConfig struct {
	Width  float64 // Arena width in world units
	Height float64 // Arena height in world units
	Margin float64 // Inset applied when clamping client coordinates
}

// DefaultArena returns the default arena geometry.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Width:  1280,
		Height: 720,
		Margin: 40,
	}
}

// ArenaFromEnv returns arena geometry with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if w := getEnvFloat("ARENA_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("ARENA_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	return cfg
}

// =============================================================================
// TICK CONFIGURATION
// =============================================================================

// TickConfig holds the room timer rates.
type TickConfig struct {
	PhysicsRate    int           // Physics ticks per second
	BroadcastRate  int           // Snapshot broadcasts (and logic sweeps) per second
	ActionInterval time.Duration // Minimum interval between accepted actions per player
}

// DefaultTick returns the default tick rates.
func DefaultTick() TickConfig {
	return TickConfig{
		PhysicsRate:    60,
		BroadcastRate:  20,
		ActionInterval: 33 * time.Millisecond,
	}
}

// TickFromEnv returns tick rates with environment variable overrides.
func TickFromEnv() TickConfig {
	cfg := DefaultTick()

	if r := getEnvInt("PHYSICS_RATE", 0); r > 0 {
		cfg.PhysicsRate = r
	}
	if r := getEnvInt("BROADCAST_RATE", 0); r > 0 {
		cfg.BroadcastRate = r
	}
	return cfg
}

// =============================================================================
// COMBAT CONFIGURATION
// =============================================================================

// CombatConfig holds every damage, combo and respawn tunable. The original
// balance numbers drifted between releases, so all of them are configuration
// rather than constants.
type CombatConfig struct {
	BaseHealth      int     // Starting and maximum health
	BaseAttackPower int     // Damage before modifiers
	AttackRange     float64 // Maximum attack distance
	AttackCooldown  time.Duration

	ComboWindow        time.Duration // Rolling window that keeps a combo alive
	ComboDamagePerHit  int           // Extra damage per combo stack
	ComboDamageCap     int           // Upper bound on the combo bonus
	ComboScoreStep     int           // Score bonus per combo stack (escalating)
	ComboScoreCap      int           // Upper bound on the per-action score bonus
	ComboAchievementAt int           // Combo count that fires the achievement event

	CloseRangeBonus float64 // Damage multiplier bonus inside half attack range
	CritChance      float64 // Probability of a critical once combo >= CritComboMin
	CritComboMin    int
	CritMultiplier  float64

	ShieldDamageFactor float64 // Damage multiplier against an active shield

	KnockbackBase   float64 // Flat knockback distance
	KnockbackPerDmg float64 // Additional knockback per point of damage

	KillScore            int
	StreakBonusEvery     int // Streak threshold granting bonus score
	StreakBonusScore     int
	StreakEnergyAt       int // Streak threshold granting bonus energy
	StreakEnergyBonus    int
	InfluenceStealFactor float64 // Fraction of victim influence moved to killer

	RespawnDelay     time.Duration
	SpawnProtection  time.Duration // Invincibility window after (re)spawn
	DefendEnergyCost int
	DefendDuration   time.Duration // Shield granted by the defend action
}

// DefaultCombat returns the default combat balance.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		BaseHealth:      100,
		BaseAttackPower: 15,
		AttackRange:     120,
		AttackCooldown:  500 * time.Millisecond,

		ComboWindow:        3 * time.Second,
		ComboDamagePerHit:  2,
		ComboDamageCap:     10,
		ComboScoreStep:     5,
		ComboScoreCap:      40,
		ComboAchievementAt: 5,

		CloseRangeBonus: 0.25,
		CritChance:      0.15,
		CritComboMin:    3,
		CritMultiplier:  2.0,

		ShieldDamageFactor: 0.5,

		KnockbackBase:   18,
		KnockbackPerDmg: 0.8,

		KillScore:            100,
		StreakBonusEvery:     3,
		StreakBonusScore:     50,
		StreakEnergyAt:       5,
		StreakEnergyBonus:    25,
		InfluenceStealFactor: 0.2,

		RespawnDelay:     3 * time.Second,
		SpawnProtection:  2 * time.Second,
		DefendEnergyCost: 20,
		DefendDuration:   5 * time.Second,
	}
}

// =============================================================================
// NEXUS CONFIGURATION
// =============================================================================

// NexusConfig holds capture and harvest tunables.
type NexusConfig struct {
	Count           int     // Nexuses per room
	MaxEnergy       float64 // Energy pool ceiling
	EnergyRegen     float64 // Energy restored per broadcast tick
	HarvestRadius   float64 // Proximity required for harvest and passive capture
	HarvestEnergy   float64 // Energy moved per harvest (capped by the pool)
	HarvestProgress float64 // Contest progress per harvest
	PassiveProgress float64 // Contest progress per physics tick in range

	CaptureThreshold float64 // Progress required for an ownership transfer
	ContestFraction  float64 // Rival progress fraction that marks a contest
	CapturePenalty   float64 // Progress removed from rivals on capture
	CaptureScore     int
	CaptureInfluence int

	DecayRadius float64 // Players beyond this radius decay each broadcast tick
	DecayAmount float64

	BoostEnergyCost int
	MaxChargeLevel  int

	BeaconEnergyCost int
	BeaconRadius     float64 // Nexuses inside gain progress on deploy
	BeaconProgress   float64
	BeaconInfluence  int
	BeaconScore      int
}

// DefaultNexus returns the default nexus balance.
func DefaultNexus() NexusConfig {
	return NexusConfig{
		Count:           5,
		MaxEnergy:       100,
		EnergyRegen:     0.5,
		HarvestRadius:   60,
		HarvestEnergy:   10,
		HarvestProgress: 8,
		PassiveProgress: 0.15,

		CaptureThreshold: 100,
		ContestFraction:  0.3,
		CapturePenalty:   30,
		CaptureScore:     150,
		CaptureInfluence: 25,

		DecayRadius: 100,
		DecayAmount: 2,

		BoostEnergyCost: 30,
		MaxChargeLevel:  5,

		BeaconEnergyCost: 25,
		BeaconRadius:     150,
		BeaconProgress:   10,
		BeaconInfluence:  10,
		BeaconScore:      25,
	}
}

// =============================================================================
// POWER-UP CONFIGURATION
// =============================================================================

// PowerUpConfig holds spawn and effect tunables.
type PowerUpConfig struct {
	SpawnIntervalMin time.Duration
	SpawnIntervalMax time.Duration
	MaxActive        int     // Maximum simultaneous uncollected power-ups
	PlacementSamples int     // Best-of-N candidate positions
	PickupRadius     float64 // Collection and auto-collection distance

	SpeedBonus     float64 // Additive movement speed
	SpeedDuration  time.Duration
	ShieldDuration time.Duration
	DamageBonus    int // Additive attack power
	DamageDuration time.Duration
	HealthRestore  int // Instant
	EnergyRestore  int // Instant
}

// DefaultPowerUp returns the default power-up balance.
func DefaultPowerUp() PowerUpConfig {
	return PowerUpConfig{
		SpawnIntervalMin: 5 * time.Second,
		SpawnIntervalMax: 12 * time.Second,
		MaxActive:        4,
		PlacementSamples: 8,
		PickupRadius:     30,

		SpeedBonus:     80,
		SpeedDuration:  8 * time.Second,
		ShieldDuration: 6 * time.Second,
		DamageBonus:    10,
		DamageDuration: 8 * time.Second,
		HealthRestore:  30,
		EnergyRestore:  25,
	}
}

// =============================================================================
// PHASE CONFIGURATION
// =============================================================================

// PhaseConfig holds the match phase durations and end-of-match score weights.
type PhaseConfig struct {
	SpawnDuration     time.Duration
	ExpansionDuration time.Duration
	ConflictDuration  time.Duration
	PulseDuration     time.Duration

	PulseEnergyPerCharge    int // Energy pulse yield per nexus charge level
	PulseInfluencePerCharge int
	PulseScorePerCharge     int

	InfluenceWeight int // Final score weights
	KillWeight      int
	DeathPenalty    int
}

// DefaultPhase returns the default phase timing.
func DefaultPhase() PhaseConfig {
	return PhaseConfig{
		SpawnDuration:     10 * time.Second,
		ExpansionDuration: 35 * time.Second,
		ConflictDuration:  30 * time.Second,
		PulseDuration:     15 * time.Second,

		PulseEnergyPerCharge:    10,
		PulseInfluencePerCharge: 5,
		PulseScorePerCharge:     20,

		InfluenceWeight: 2,
		KillWeight:      50,
		DeathPenalty:    25,
	}
}

// PhaseFromEnv returns phase timing with environment variable overrides.
// Shortened phases are mainly useful for load tests and demos.
func PhaseFromEnv() PhaseConfig {
	cfg := DefaultPhase()

	if d := getEnvDuration("PHASE_SPAWN", 0); d > 0 {
		cfg.SpawnDuration = d
	}
	if d := getEnvDuration("PHASE_EXPANSION", 0); d > 0 {
		cfg.ExpansionDuration = d
	}
	if d := getEnvDuration("PHASE_CONFLICT", 0); d > 0 {
		cfg.ConflictDuration = d
	}
	if d := getEnvDuration("PHASE_PULSE", 0); d > 0 {
		cfg.PulseDuration = d
	}
	return cfg
}

// =============================================================================
// MOVEMENT & ABILITY CONFIGURATION
// =============================================================================

// MovementConfig holds physics tunables.
type MovementConfig struct {
	BaseSpeed     float64 // World units per second
	ArriveEpsilon float64 // Distance below which a player counts as arrived
}

// DefaultMovement returns the default movement tunables.
func DefaultMovement() MovementConfig {
	return MovementConfig{
		BaseSpeed:     220,
		ArriveEpsilon: 1.0,
	}
}

// AbilityConfig holds per-ability costs, cooldowns and magnitudes.
type AbilityConfig struct {
	DashRange        float64
	DashEnergyCost   int
	DashCooldown     time.Duration
	DashProtection   time.Duration // Brief invincibility after a dash
	HealAmount       int
	HealEnergyCost   int
	HealCooldown     time.Duration
	ShieldDuration   time.Duration
	ShieldEnergyCost int
	ShieldCooldown   time.Duration
	ScanEnergyCost   int
	ScanCooldown     time.Duration
}

// DefaultAbility returns the default ability balance.
func DefaultAbility() AbilityConfig {
	return AbilityConfig{
		DashRange:        200,
		DashEnergyCost:   15,
		DashCooldown:     5 * time.Second,
		DashProtection:   500 * time.Millisecond,
		HealAmount:       30,
		HealEnergyCost:   25,
		HealCooldown:     8 * time.Second,
		ShieldDuration:   4 * time.Second,
		ShieldEnergyCost: 20,
		ShieldCooldown:   10 * time.Second,
		ScanEnergyCost:   10,
		ScanCooldown:     6 * time.Second,
	}
}

// =============================================================================
// ROOM LIMITS
// =============================================================================

// RoomLimits controls room population bounds.
type RoomLimits struct {
	MaxPlayers int // Hard cap per room
	MinPlayers int // Players required for a match to start or continue
	MaxRooms   int // Hard cap on simultaneous rooms
}

// DefaultRoomLimits returns the default room population bounds.
func DefaultRoomLimits() RoomLimits {
	return RoomLimits{
		MaxPlayers: 10,
		MinPlayers: 2,
		MaxRooms:   100,
	}
}

// =============================================================================
// GAME CONFIGURATION (aggregate)
// =============================================================================

// GameConfig aggregates every simulation tunable for one room.
type GameConfig struct {
	Arena    ArenaConfig
	Tick     TickConfig
	Combat   CombatConfig
	Nexus    NexusConfig
	PowerUp  PowerUpConfig
	Phase    PhaseConfig
	Movement MovementConfig
	Ability  AbilityConfig
	Limits   RoomLimits
}

// DefaultGame returns the complete default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		Arena:    DefaultArena(),
		Tick:     DefaultTick(),
		Combat:   DefaultCombat(),
		Nexus:    DefaultNexus(),
		PowerUp:  DefaultPowerUp(),
		Phase:    DefaultPhase(),
		Movement: DefaultMovement(),
		Ability:  DefaultAbility(),
		Limits:   DefaultRoomLimits(),
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	AuditLogPath string // Empty disables the JSONL event audit log
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	cfg.AuditLogPath = os.Getenv("AUDIT_LOG_PATH")
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	game := DefaultGame()
	game.Arena = ArenaFromEnv()
	game.Tick = TickFromEnv()
	game.Phase = PhaseFromEnv()

	return AppConfig{
		Game:   game,
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
