package game

import (
	"math/rand"
	"time"

	"nexus-arena/internal/config"
)

// PowerUp is a world-spawned, uncollected pickup. Collection removes it from
// the room's world list and attaches an ActiveEffect to the collecting
// player, so an item is never both in the world and on a player.
type PowerUp struct {
	ID       string
	Kind     EffectKind
	X, Y     float64
	Duration time.Duration // 0 means instant
}

// powerUpWeights biases spawns toward speed and shield pickups.
var powerUpWeights = []struct {
	kind   EffectKind
	weight int
}{
	{EffectSpeed, 25},
	{EffectShield, 25},
	{EffectHealth, 20},
	{EffectDamage, 15},
	{EffectEnergy, 15},
}

// rollPowerUpKind picks a weighted random power-up type.
func rollPowerUpKind(rng *rand.Rand) EffectKind {
	total := 0
	for _, w := range powerUpWeights {
		total += w.weight
	}
	roll := rng.Intn(total)
	for _, w := range powerUpWeights {
		roll -= w.weight
		if roll < 0 {
			return w.kind
		}
	}
	return EffectSpeed
}

// powerUpDuration returns the timed-effect duration for a kind, 0 for
// instant effects.
func powerUpDuration(kind EffectKind, cfg config.PowerUpConfig) time.Duration {
	switch kind {
	case EffectSpeed:
		return cfg.SpeedDuration
	case EffectShield:
		return cfg.ShieldDuration
	case EffectDamage:
		return cfg.DamageDuration
	}
	return 0
}

// applyPowerUp applies a collected power-up to a player: instant kinds mutate
// stats directly, timed kinds attach an ActiveEffect with its additive bonus.
func applyPowerUp(p *Player, pu *PowerUp, cfg config.PowerUpConfig, now time.Time) {
	switch pu.Kind {
	case EffectHealth:
		p.heal(cfg.HealthRestore)
	case EffectEnergy:
		p.Energy += cfg.EnergyRestore
	case EffectSpeed:
		p.attachEffect(ActiveEffect{
			ID:         pu.ID,
			Kind:       EffectSpeed,
			SpeedBonus: cfg.SpeedBonus,
			ExpiresAt:  now.Add(pu.Duration),
		})
	case EffectDamage:
		p.attachEffect(ActiveEffect{
			ID:          pu.ID,
			Kind:        EffectDamage,
			DamageBonus: cfg.DamageBonus,
			ExpiresAt:   now.Add(pu.Duration),
		})
	case EffectShield:
		p.attachEffect(ActiveEffect{
			ID:        pu.ID,
			Kind:      EffectShield,
			ExpiresAt: now.Add(pu.Duration),
		})
	}
}
