package game

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// resolveAttack applies one melee swing. Invalid attempts fall through
// silently except an invincible target, which is the only rejection the
// attacker is told about.
func (r *Room) resolveAttack(attacker *Player, targetID string, now time.Time) {
	if attacker.IsInvincible(now) {
		return
	}
	if now.Sub(attacker.LastAttackTime) < r.cfg.Combat.AttackCooldown {
		return
	}
	target, ok := r.players[targetID]
	if !ok || target.ID == attacker.ID || !target.Alive || !target.Connected {
		return
	}
	d := attacker.distanceTo(target.X, target.Y)
	if d > attacker.AttackRange {
		return
	}
	if target.IsInvincible(now) {
		r.emit(newEvent(EvAttackBlocked, AttackBlockedData{
			AttackerID: attacker.ID,
			TargetID:   target.ID,
			Reason:     "invincible",
		}))
		return
	}

	attacker.LastAttackTime = now
	r.registerCombo(attacker, now)

	damage := float64(attacker.AttackPower)

	comboBonus := (attacker.ComboCount - 1) * r.cfg.Combat.ComboDamagePerHit
	if comboBonus > r.cfg.Combat.ComboDamageCap {
		comboBonus = r.cfg.Combat.ComboDamageCap
	}
	damage += float64(comboBonus)

	if d < attacker.AttackRange/2 {
		damage *= 1 + r.cfg.Combat.CloseRangeBonus
	}

	critical := false
	if attacker.ComboCount >= r.cfg.Combat.CritComboMin && r.rng.Float64() < r.cfg.Combat.CritChance {
		damage *= r.cfg.Combat.CritMultiplier
		critical = true
	}

	if target.HasShield(now) {
		damage *= r.cfg.Combat.ShieldDamageFactor
	}

	dmg := int(math.Round(damage))
	if dmg < 1 {
		dmg = 1
	}
	target.Health -= dmg
	if target.Health < 0 {
		target.Health = 0
	}
	attacker.DamageDealt += dmg
	attacker.Score += dmg

	// Knocked straight away from the attacker, scaled with the hit.
	kx, ky := 0.0, 0.0
	if d > 0 {
		mag := r.cfg.Combat.KnockbackBase + r.cfg.Combat.KnockbackPerDmg*float64(dmg)
		kx = (target.X - attacker.X) / d * mag
		ky = (target.Y - attacker.Y) / d * mag
	}
	target.X, target.Y = clampToArena(target.X+kx, target.Y+ky, r.cfg.Arena)
	target.TargetX, target.TargetY = target.X, target.Y

	r.emit(newEvent(EvPlayerAttacked, AttackData{
		AttackerID: attacker.ID,
		TargetID:   target.ID,
		Damage:     dmg,
		TargetHP:   target.Health,
		KnockbackX: kx,
		KnockbackY: ky,
		ComboCount: attacker.ComboCount,
		Critical:   critical,
	}))

	if target.Health <= 0 {
		r.resolveKill(attacker, target, now)
	}
}

// registerCombo advances the shared combo counter. Both attacks and harvests
// come through here, so alternating the two sustains a chain.
func (r *Room) registerCombo(p *Player, now time.Time) {
	if now.Sub(p.LastComboTime) <= r.cfg.Combat.ComboWindow {
		p.ComboCount++
	} else {
		p.ComboCount = 1
	}
	p.LastComboTime = now

	bonus := r.cfg.Combat.ComboScoreStep * (p.ComboCount - 1)
	if bonus > r.cfg.Combat.ComboScoreCap {
		bonus = r.cfg.Combat.ComboScoreCap
	}
	p.Score += bonus

	if p.ComboCount == r.cfg.Combat.ComboAchievementAt {
		r.emit(newEvent(EvAchievement, AchievementData{
			PlayerID: p.ID,
			Kind:     "combo",
			Count:    p.ComboCount,
		}))
	}
}

// resolveKill settles a lethal hit: streak rewards, influence theft and the
// deferred respawn.
func (r *Room) resolveKill(killer, victim *Player, now time.Time) {
	victim.Alive = false
	victim.Health = 0
	victim.Deaths++
	victim.KillStreak = 0
	victim.ComboCount = 0

	killer.Kills++
	killer.KillStreak++

	score := r.cfg.Combat.KillScore
	if killer.KillStreak > 0 && killer.KillStreak%r.cfg.Combat.StreakBonusEvery == 0 {
		score += r.cfg.Combat.StreakBonusScore
	}
	if killer.KillStreak == r.cfg.Combat.StreakEnergyAt {
		killer.Energy += r.cfg.Combat.StreakEnergyBonus
	}
	killer.Score += score

	stolen := int(float64(victim.Influence) * r.cfg.Combat.InfluenceStealFactor)
	victim.Influence -= stolen
	killer.Influence += stolen

	r.emit(newEvent(EvPlayerKilled, KillData{
		KillerID:        killer.ID,
		VictimID:        victim.ID,
		KillStreak:      killer.KillStreak,
		InfluenceStolen: stolen,
	}))

	r.scheduleRespawn(victim.ID)
}

// scheduleRespawn arms the deferred respawn timer for a dead player. The
// timer is cancelled on match end and room teardown.
func (r *Room) scheduleRespawn(playerID string) {
	if t, ok := r.respawnTimers[playerID]; ok {
		t.Stop()
	}
	r.respawnTimers[playerID] = time.AfterFunc(r.cfg.Combat.RespawnDelay, func() {
		r.respawnPlayer(playerID)
	})
}

// respawnPlayer fires from the respawn timer. Everything is re-checked under
// the lock because the room may have moved on since the kill.
func (r *Room) respawnPlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.respawnTimers, playerID)
	p, ok := r.players[playerID]
	if !ok || p.Alive || r.stopped || r.phase == PhaseEnded {
		return
	}

	now := time.Now()
	p.Alive = true
	p.Health = p.MaxHealth
	p.clearEffects()
	p.X, p.Y = farthestSpawn(r.cfg.Arena, r.occupiedPositions(), r.rng)
	p.TargetX, p.TargetY = p.X, p.Y
	p.InvincibleUntil = now.Add(r.cfg.Combat.SpawnProtection)

	r.emit(newEvent(EvPlayerRespawned, RespawnData{
		PlayerID: p.ID,
		X:        p.X,
		Y:        p.Y,
	}))
}

// defend buys a short shield for energy. No event: the shield shows up in
// the next snapshot.
func (r *Room) defend(p *Player, now time.Time) {
	if p.Energy < r.cfg.Combat.DefendEnergyCost {
		return
	}
	p.Energy -= r.cfg.Combat.DefendEnergyCost
	p.attachEffect(ActiveEffect{
		ID:        uuid.NewString(),
		Kind:      EffectShield,
		ExpiresAt: now.Add(r.cfg.Combat.DefendDuration),
	})
}
