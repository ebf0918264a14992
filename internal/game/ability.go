package game

import (
	"time"

	"github.com/google/uuid"

	"nexus-arena/internal/config"
)

// ability is the uniform execution contract behind the use-ability action.
// apply runs under the room lock with cost and cooldown already settled, and
// returns the events to emit.
type ability interface {
	kind() AbilityKind
	cost(cfg config.AbilityConfig) int
	cooldown(cfg config.AbilityConfig) time.Duration
	apply(r *Room, p *Player, x, y float64, now time.Time) []Event
}

var abilities = map[AbilityKind]ability{
	AbilityDash:   dashAbility{},
	AbilityHeal:   healAbility{},
	AbilityShield: shieldAbility{},
	AbilityScan:   scanAbility{},
}

// useAbility runs a player's chosen ability through the shared gate: unknown
// ability, cooldown and energy failures are all silent.
func (r *Room) useAbility(p *Player, x, y float64, now time.Time) {
	a, ok := abilities[p.Ability]
	if !ok {
		return
	}
	if now.Sub(p.LastAbilityUse) < a.cooldown(r.cfg.Ability) {
		return
	}
	c := a.cost(r.cfg.Ability)
	if p.Energy < c {
		return
	}
	p.Energy -= c
	p.LastAbilityUse = now

	for _, ev := range a.apply(r, p, x, y, now) {
		r.emit(ev)
	}
}

// dashAbility teleports toward a point, range-limited, with a protection
// window to cover the visual blink.
type dashAbility struct{}

func (dashAbility) kind() AbilityKind { return AbilityDash }

func (dashAbility) cost(cfg config.AbilityConfig) int { return cfg.DashEnergyCost }

func (dashAbility) cooldown(cfg config.AbilityConfig) time.Duration { return cfg.DashCooldown }

func (dashAbility) apply(r *Room, p *Player, x, y float64, now time.Time) []Event {
	d := p.distanceTo(x, y)
	if d > r.cfg.Ability.DashRange && d > 0 {
		scale := r.cfg.Ability.DashRange / d
		x = p.X + (x-p.X)*scale
		y = p.Y + (y-p.Y)*scale
	}
	p.X, p.Y = clampToArena(x, y, r.cfg.Arena)
	p.TargetX, p.TargetY = p.X, p.Y
	p.InvincibleUntil = now.Add(r.cfg.Ability.DashProtection)

	return []Event{newEvent(EvAbilityUsed, AbilityUsedData{
		PlayerID: p.ID,
		Ability:  AbilityDash,
		X:        p.X,
		Y:        p.Y,
	})}
}

type healAbility struct{}

func (healAbility) kind() AbilityKind { return AbilityHeal }

func (healAbility) cost(cfg config.AbilityConfig) int { return cfg.HealEnergyCost }

func (healAbility) cooldown(cfg config.AbilityConfig) time.Duration { return cfg.HealCooldown }

func (healAbility) apply(r *Room, p *Player, _, _ float64, _ time.Time) []Event {
	p.heal(r.cfg.Ability.HealAmount)
	return []Event{newEvent(EvAbilityUsed, AbilityUsedData{
		PlayerID: p.ID,
		Ability:  AbilityHeal,
	})}
}

type shieldAbility struct{}

func (shieldAbility) kind() AbilityKind { return AbilityShield }

func (shieldAbility) cost(cfg config.AbilityConfig) int { return cfg.ShieldEnergyCost }

func (shieldAbility) cooldown(cfg config.AbilityConfig) time.Duration { return cfg.ShieldCooldown }

func (shieldAbility) apply(r *Room, p *Player, _, _ float64, now time.Time) []Event {
	p.attachEffect(ActiveEffect{
		ID:        uuid.NewString(),
		Kind:      EffectShield,
		ExpiresAt: now.Add(r.cfg.Ability.ShieldDuration),
	})
	return []Event{newEvent(EvAbilityUsed, AbilityUsedData{
		PlayerID: p.ID,
		Ability:  AbilityShield,
	})}
}

// scanAbility reveals every uncollected power-up to the caster.
type scanAbility struct{}

func (scanAbility) kind() AbilityKind { return AbilityScan }

func (scanAbility) cost(cfg config.AbilityConfig) int { return cfg.ScanEnergyCost }

func (scanAbility) cooldown(cfg config.AbilityConfig) time.Duration { return cfg.ScanCooldown }

func (scanAbility) apply(r *Room, p *Player, _, _ float64, _ time.Time) []Event {
	reveals := make([]PowerUpData, 0, len(r.powerUps))
	for _, pu := range r.powerUps {
		reveals = append(reveals, PowerUpData{
			PowerUpID: pu.ID,
			Kind:      pu.Kind,
			X:         pu.X,
			Y:         pu.Y,
		})
	}
	return []Event{newEvent(EvAbilityUsed, AbilityUsedData{
		PlayerID: p.ID,
		Ability:  AbilityScan,
		Reveals:  reveals,
	})}
}
