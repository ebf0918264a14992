package game

import (
	"time"

	"nexus-arena/internal/config"
)

// AbilityKind identifies a player's chosen special ability.
type AbilityKind string

const (
	AbilityDash   AbilityKind = "dash"
	AbilityHeal   AbilityKind = "heal"
	AbilityShield AbilityKind = "shield"
	AbilityScan   AbilityKind = "scan"
)

// ValidAbility reports whether k names a known ability. Unknown kinds fall
// back to dash at join time.
func ValidAbility(k AbilityKind) bool {
	switch k {
	case AbilityDash, AbilityHeal, AbilityShield, AbilityScan:
		return true
	}
	return false
}

// EffectKind identifies a power-up effect attached to a player.
type EffectKind string

const (
	EffectSpeed  EffectKind = "speed"
	EffectShield EffectKind = "shield"
	EffectDamage EffectKind = "damage"
	EffectHealth EffectKind = "health"
	EffectEnergy EffectKind = "energy"
)

// ActiveEffect is a timed power-up effect attached to exactly one player.
// Instant effects (health, energy) are applied on collection and never
// become an ActiveEffect.
type ActiveEffect struct {
	ID          string     `json:"id"`
	Kind        EffectKind `json:"kind"`
	SpeedBonus  float64    `json:"speedBonus,omitempty"`
	DamageBonus int        `json:"damageBonus,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// Player is one room member. All mutation happens under the room lock;
// nothing outside the room package touches these fields directly.
type Player struct {
	ID     string // Room-local entity id, stable across reconnects
	UserID string // External identity used to rebind a new connection
	Name   string
	Color  string

	X, Y             float64
	TargetX, TargetY float64
	Speed            float64 // Current speed, base plus power-up bonuses

	Energy    int
	Influence int

	Health      int
	MaxHealth   int
	AttackPower int // Current attack power, base plus power-up bonuses
	AttackRange float64

	Alive     bool
	Connected bool

	ComboCount    int
	LastComboTime time.Time

	KillStreak       int
	Kills            int
	Deaths           int
	Score            int
	DamageDealt      int
	NexusesCaptured  int

	Effects []ActiveEffect

	Ability        AbilityKind
	LastAbilityUse time.Time

	InvincibleUntil time.Time
	LastAttackTime  time.Time // Per-attacker cooldown gate
	LastActionTime  time.Time // Rate limiting gate

	baseSpeed       float64
	baseAttackPower int
}

// newPlayer builds a fresh player with base stats from cfg. Position is set
// by the caller via the spawn placer.
func newPlayer(id, userID, name, color string, ability AbilityKind, cfg config.GameConfig) *Player {
	if !ValidAbility(ability) {
		ability = AbilityDash
	}
	return &Player{
		ID:              id,
		UserID:          userID,
		Name:            name,
		Color:           color,
		Speed:           cfg.Movement.BaseSpeed,
		Energy:          50,
		Health:          cfg.Combat.BaseHealth,
		MaxHealth:       cfg.Combat.BaseHealth,
		AttackPower:     cfg.Combat.BaseAttackPower,
		AttackRange:     cfg.Combat.AttackRange,
		Alive:           true,
		Connected:       true,
		Ability:         ability,
		baseSpeed:       cfg.Movement.BaseSpeed,
		baseAttackPower: cfg.Combat.BaseAttackPower,
	}
}

// resetForMatch restores transient state for a rematch while preserving
// identity, color and ability.
func (p *Player) resetForMatch(cfg config.GameConfig) {
	p.Speed = cfg.Movement.BaseSpeed
	p.Energy = 50
	p.Influence = 0
	p.Health = cfg.Combat.BaseHealth
	p.MaxHealth = cfg.Combat.BaseHealth
	p.AttackPower = cfg.Combat.BaseAttackPower
	p.Alive = true
	p.ComboCount = 0
	p.LastComboTime = time.Time{}
	p.KillStreak = 0
	p.Kills = 0
	p.Deaths = 0
	p.Score = 0
	p.DamageDealt = 0
	p.NexusesCaptured = 0
	p.Effects = nil
	p.LastAbilityUse = time.Time{}
	p.InvincibleUntil = time.Time{}
	p.LastAttackTime = time.Time{}
}

// IsInvincible reports whether the player cannot currently take damage.
func (p *Player) IsInvincible(now time.Time) bool {
	return now.Before(p.InvincibleUntil)
}

// HasShield reports whether a shield effect is active.
func (p *Player) HasShield(now time.Time) bool {
	for _, e := range p.Effects {
		if e.Kind == EffectShield && now.Before(e.ExpiresAt) {
			return true
		}
	}
	return false
}

// attachEffect applies a timed effect, adding any additive stat bonus.
func (p *Player) attachEffect(e ActiveEffect) {
	p.Speed += e.SpeedBonus
	p.AttackPower += e.DamageBonus
	p.Effects = append(p.Effects, e)
}

// expireEffects removes effects past their expiry and reverses their additive
// bonuses. Stats never drop below the player's base values.
func (p *Player) expireEffects(now time.Time) {
	n := 0
	for _, e := range p.Effects {
		if now.Before(e.ExpiresAt) {
			p.Effects[n] = e
			n++
			continue
		}
		p.Speed -= e.SpeedBonus
		if p.Speed < p.baseSpeed {
			p.Speed = p.baseSpeed
		}
		p.AttackPower -= e.DamageBonus
		if p.AttackPower < p.baseAttackPower {
			p.AttackPower = p.baseAttackPower
		}
	}
	p.Effects = p.Effects[:n]
}

// clearEffects drops every active effect and restores base stats. Used on
// respawn, where buffs do not survive death.
func (p *Player) clearEffects() {
	p.Effects = nil
	p.Speed = p.baseSpeed
	p.AttackPower = p.baseAttackPower
}

// heal raises health without exceeding the maximum.
func (p *Player) heal(amount int) {
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// distanceTo returns the Euclidean distance to a point.
func (p *Player) distanceTo(x, y float64) float64 {
	return dist(p.X, p.Y, x, y)
}
