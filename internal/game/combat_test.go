package game

import (
	"math"
	"testing"
	"time"
)

// combatPair sets up a running room with two adjacent players and returns
// their ids. Rate limiting is bypassed by calling resolveAttack directly.
func combatPair(t *testing.T, r *Room) (string, string) {
	t.Helper()
	a := addTestPlayer(t, r, "u1", "alice")
	b := addTestPlayer(t, r, "u2", "bob")
	r.players[a].X, r.players[a].Y = 300, 300
	r.players[b].X, r.players[b].Y = 400, 300
	return a, b
}

func TestAttackBaseDamage(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	// Distance 100 is beyond half of the 120 range, so no close bonus.
	r.resolveAttack(r.players[a], b, time.Now())

	want := cfg.Combat.BaseAttackPower
	if got := cfg.Combat.BaseHealth - r.players[b].Health; got != want {
		t.Errorf("Expected %d damage, got %d", want, got)
	}
	if r.players[a].DamageDealt != want {
		t.Errorf("Expected damageDealt %d, got %d", want, r.players[a].DamageDealt)
	}
	if len(sink.eventsOfType(EvPlayerAttacked)) != 1 {
		t.Error("Expected a player-attacked event")
	}
}

func TestAttackOutOfRange(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)
	r.players[b].X = 900

	r.resolveAttack(r.players[a], b, time.Now())

	if r.players[b].Health != r.cfg.Combat.BaseHealth {
		t.Error("Expected out-of-range attack to be a silent no-op")
	}
	if len(sink.eventsOfType(EvPlayerAttacked)) != 0 {
		t.Error("Expected no attack event out of range")
	}
}

func TestAttackCooldown(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)

	now := time.Now()
	r.resolveAttack(r.players[a], b, now)
	hpAfterFirst := r.players[b].Health

	r.resolveAttack(r.players[a], b, now.Add(10*time.Millisecond))
	if r.players[b].Health != hpAfterFirst {
		t.Error("Expected second swing inside the cooldown to be dropped")
	}

	// The first swing's knockback pushed the target out of range.
	r.players[b].X, r.players[b].Y = r.players[a].X+100, r.players[a].Y
	r.resolveAttack(r.players[a], b, now.Add(r.cfg.Combat.AttackCooldown))
	if r.players[b].Health == hpAfterFirst {
		t.Error("Expected swing after the cooldown to land")
	}
}

func TestComboScalingAndCap(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	attacker := r.players[a]
	target := r.players[b]
	target.Health = 100000
	target.MaxHealth = 100000

	now := time.Now()
	var perHit []int
	prev := target.Health
	for i := 0; i < 10; i++ {
		r.resolveAttack(attacker, b, now)
		perHit = append(perHit, prev-target.Health)
		prev = target.Health
		now = now.Add(cfg.Combat.AttackCooldown)
		// Keep the target in close-bonus-free range after knockback.
		target.X, target.Y = attacker.X+100, attacker.Y
	}

	if perHit[1] != perHit[0]+cfg.Combat.ComboDamagePerHit {
		t.Errorf("Expected combo to add %d damage, hits %v", cfg.Combat.ComboDamagePerHit, perHit)
	}
	capped := cfg.Combat.BaseAttackPower + cfg.Combat.ComboDamageCap
	if perHit[9] != capped {
		t.Errorf("Expected capped damage %d, got %d", capped, perHit[9])
	}
}

func TestCloseRangeBonus(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	r.players[b].X = r.players[a].X + 30 // Inside half range

	r.resolveAttack(r.players[a], b, time.Now())

	want := int(math.Round(float64(cfg.Combat.BaseAttackPower) * (1 + cfg.Combat.CloseRangeBonus)))
	if got := cfg.Combat.BaseHealth - r.players[b].Health; got != want {
		t.Errorf("Expected close-range damage %d, got %d", want, got)
	}
}

func TestShieldHalvesDamage(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	r.players[b].attachEffect(ActiveEffect{
		ID:        "shield-1",
		Kind:      EffectShield,
		ExpiresAt: time.Now().Add(time.Minute),
	})

	r.resolveAttack(r.players[a], b, time.Now())

	want := int(math.Round(float64(cfg.Combat.BaseAttackPower) * cfg.Combat.ShieldDamageFactor))
	if got := cfg.Combat.BaseHealth - r.players[b].Health; got != want {
		t.Errorf("Expected shielded damage %d, got %d", want, got)
	}
}

func TestAttackIgnoresDisconnectedTarget(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)

	r.RemovePlayer(b)

	r.resolveAttack(r.players[a], b, time.Now())

	if r.players[b].Health != r.cfg.Combat.BaseHealth {
		t.Error("Expected a disconnected player's entity to be untouchable")
	}
	if len(sink.eventsOfType(EvPlayerAttacked)) != 0 {
		t.Error("Expected no attack event against a disconnected player")
	}
}

func TestInvincibleTargetBlocksAttack(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)

	r.players[b].InvincibleUntil = time.Now().Add(time.Minute)

	r.resolveAttack(r.players[a], b, time.Now())

	if r.players[b].Health != r.cfg.Combat.BaseHealth {
		t.Error("Expected no damage against an invincible target")
	}
	blocked := sink.eventsOfType(EvAttackBlocked)
	if len(blocked) != 1 {
		t.Fatalf("Expected 1 attack-blocked event, got %d", len(blocked))
	}
	if data := blocked[0].Data.(AttackBlockedData); data.Reason != "invincible" {
		t.Errorf("Expected reason invincible, got %s", data.Reason)
	}
}

func TestInvincibleAttackerCannotAttack(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)

	r.players[a].InvincibleUntil = time.Now().Add(time.Minute)

	r.resolveAttack(r.players[a], b, time.Now())

	if r.players[b].Health != r.cfg.Combat.BaseHealth {
		t.Error("Expected an invincible attacker's swing to be dropped")
	}
}

func TestKnockbackStaysInArena(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	// Target against the right edge, attacker pushing outward.
	edge := cfg.Arena.Width - cfg.Arena.Margin
	r.players[b].X, r.players[b].Y = edge, 300
	r.players[a].X, r.players[a].Y = edge-50, 300

	r.resolveAttack(r.players[a], b, time.Now())

	if r.players[b].X > edge {
		t.Errorf("Expected knockback clamped at %v, got %v", edge, r.players[b].X)
	}
}

func TestKillResolution(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	killer := r.players[a]
	victim := r.players[b]
	victim.Health = 1
	victim.Influence = 50

	r.resolveAttack(killer, b, time.Now())

	if victim.Alive {
		t.Fatal("Expected the victim to be dead")
	}
	if victim.Deaths != 1 || killer.Kills != 1 || killer.KillStreak != 1 {
		t.Errorf("Unexpected kill stats: deaths=%d kills=%d streak=%d",
			victim.Deaths, killer.Kills, killer.KillStreak)
	}

	wantSteal := int(50 * cfg.Combat.InfluenceStealFactor)
	if killer.Influence != wantSteal {
		t.Errorf("Expected %d influence stolen, killer has %d", wantSteal, killer.Influence)
	}
	if victim.Influence != 50-wantSteal {
		t.Errorf("Expected victim left with %d influence, got %d", 50-wantSteal, victim.Influence)
	}

	kills := sink.eventsOfType(EvPlayerKilled)
	if len(kills) != 1 {
		t.Fatalf("Expected 1 player-killed event, got %d", len(kills))
	}
	data := kills[0].Data.(KillData)
	if data.KillerID != a || data.VictimID != b || data.InfluenceStolen != wantSteal {
		t.Errorf("Unexpected kill payload %+v", data)
	}

	if _, ok := r.respawnTimers[b]; !ok {
		t.Error("Expected a pending respawn timer for the victim")
	}
}

func TestStreakBonuses(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	killer := r.players[a]
	victim := r.players[b]

	baseEnergy := killer.Energy
	for streak := 1; streak <= cfg.Combat.StreakEnergyAt; streak++ {
		victim.Alive = true
		victim.Health = 0
		killer.Score = 0
		r.resolveKill(killer, victim, time.Now())

		wantScore := cfg.Combat.KillScore
		if streak%cfg.Combat.StreakBonusEvery == 0 {
			wantScore += cfg.Combat.StreakBonusScore
		}
		if killer.Score != wantScore {
			t.Errorf("Streak %d: expected score %d, got %d", streak, wantScore, killer.Score)
		}
	}
	if killer.Energy != baseEnergy+cfg.Combat.StreakEnergyBonus {
		t.Errorf("Expected energy bonus at streak %d", cfg.Combat.StreakEnergyAt)
	}
}

func TestRespawnRestoresPlayer(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestRoom(t, cfg)
	a, b := combatPair(t, r)

	victim := r.players[b]
	victim.Health = 1
	victim.attachEffect(ActiveEffect{
		ID:         "speed-1",
		Kind:       EffectSpeed,
		SpeedBonus: 80,
		ExpiresAt:  time.Now().Add(time.Minute),
	})

	r.resolveAttack(r.players[a], b, time.Now())
	if victim.Alive {
		t.Fatal("Expected a kill")
	}

	r.respawnPlayer(b)

	if !victim.Alive || victim.Health != victim.MaxHealth {
		t.Errorf("Expected full restore, alive=%v health=%d", victim.Alive, victim.Health)
	}
	if len(victim.Effects) != 0 {
		t.Error("Expected effects cleared on respawn")
	}
	if victim.Speed != cfg.Movement.BaseSpeed {
		t.Errorf("Expected base speed %v after respawn, got %v", cfg.Movement.BaseSpeed, victim.Speed)
	}
	if !victim.IsInvincible(time.Now()) {
		t.Error("Expected spawn protection after respawn")
	}
	if len(sink.eventsOfType(EvPlayerRespawned)) != 1 {
		t.Error("Expected a player-respawned event")
	}
}

func TestRespawnSkippedAfterMatchEnd(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())
	a, b := combatPair(t, r)

	r.players[b].Health = 1
	r.resolveAttack(r.players[a], b, time.Now())

	r.mu.Lock()
	r.endMatch("time", time.Now())
	r.mu.Unlock()

	r.respawnPlayer(b)

	if r.players[b].Alive {
		t.Error("Expected no respawn after the match ended")
	}
	if len(sink.eventsOfType(EvPlayerRespawned)) != 0 {
		t.Error("Expected no respawn event after the match ended")
	}
}

func TestComboAchievementEvent(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestRoom(t, cfg)
	a, _ := combatPair(t, r)

	p := r.players[a]
	now := time.Now()
	for i := 0; i < cfg.Combat.ComboAchievementAt+2; i++ {
		r.registerCombo(p, now)
	}

	achievements := sink.eventsOfType(EvAchievement)
	if len(achievements) != 1 {
		t.Fatalf("Expected the achievement exactly once, got %d", len(achievements))
	}
	if data := achievements[0].Data.(AchievementData); data.Count != cfg.Combat.ComboAchievementAt {
		t.Errorf("Expected achievement at combo %d, got %d", cfg.Combat.ComboAchievementAt, data.Count)
	}
}

func TestComboWindowExpiry(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, _ := combatPair(t, r)

	p := r.players[a]
	now := time.Now()
	r.registerCombo(p, now)
	r.registerCombo(p, now.Add(time.Second))
	if p.ComboCount != 2 {
		t.Fatalf("Expected combo 2 inside the window, got %d", p.ComboCount)
	}

	r.registerCombo(p, now.Add(time.Second+cfg.Combat.ComboWindow+time.Millisecond))
	if p.ComboCount != 1 {
		t.Errorf("Expected combo reset after the window, got %d", p.ComboCount)
	}
}

func TestDefendGrantsShield(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)
	a, _ := combatPair(t, r)

	p := r.players[a]
	p.Energy = cfg.Combat.DefendEnergyCost
	r.defend(p, time.Now())

	if p.Energy != 0 {
		t.Errorf("Expected energy spent, got %d", p.Energy)
	}
	if !p.HasShield(time.Now()) {
		t.Error("Expected an active shield after defend")
	}

	// Broke: no energy left, second defend is a no-op.
	r.defend(p, time.Now())
	if len(p.Effects) != 1 {
		t.Errorf("Expected a single shield effect, got %d", len(p.Effects))
	}
}
