package game

import (
	"time"

	"github.com/google/uuid"
)

// harvest siphons energy from a nexus in range and converts the action into
// contest progress. Harvesting feeds the same combo counter as attacking.
func (r *Room) harvest(p *Player, nexusID string, now time.Time) {
	n := r.findNexus(nexusID)
	if n == nil {
		return
	}
	if p.distanceTo(n.X, n.Y) > r.cfg.Nexus.HarvestRadius {
		return
	}

	amount := r.cfg.Nexus.HarvestEnergy
	if amount > n.Energy {
		amount = n.Energy
	}
	n.Energy -= amount
	p.Energy += int(amount)

	r.registerCombo(p, now)

	// A running combo harvests slightly faster, capped well below double.
	stacks := p.ComboCount - 1
	if stacks > 8 {
		stacks = 8
	}
	progress := r.cfg.Nexus.HarvestProgress * (1 + 0.05*float64(stacks))
	n.addProgress(p.ID, progress, r.cfg.Nexus)
	r.evaluateNexus(n)
}

// evaluateNexus re-runs control evaluation and settles a capture if one
// happened: scoring, influence and the capture event all land atomically
// under the room lock.
func (r *Room) evaluateNexus(n *Nexus) {
	res := n.evaluateControl(r.cfg.Nexus)
	if res == nil {
		return
	}
	if p, ok := r.players[res.NewController]; ok {
		p.Score += r.cfg.Nexus.CaptureScore
		p.Influence += r.cfg.Nexus.CaptureInfluence
		p.NexusesCaptured++
	}
	r.emit(newEvent(EvNexusCaptured, NexusCapturedData{
		NexusID:   n.ID,
		PlayerID:  res.NewController,
		PrevOwner: res.PrevController,
	}))
}

// boostNexus raises a controlled nexus's charge level for energy. Only the
// current controller may boost.
func (r *Room) boostNexus(p *Player, nexusID string) {
	n := r.findNexus(nexusID)
	if n == nil || n.Controller != p.ID {
		return
	}
	if n.ChargeLevel >= r.cfg.Nexus.MaxChargeLevel {
		return
	}
	if p.Energy < r.cfg.Nexus.BoostEnergyCost {
		return
	}
	p.Energy -= r.cfg.Nexus.BoostEnergyCost
	n.ChargeLevel++
}

// deployBeacon spends energy to project contest progress onto every nexus
// around a point, plus a flat influence and score reward.
func (r *Room) deployBeacon(p *Player, x, y float64) {
	if p.Energy < r.cfg.Nexus.BeaconEnergyCost {
		return
	}
	p.Energy -= r.cfg.Nexus.BeaconEnergyCost
	p.Influence += r.cfg.Nexus.BeaconInfluence
	p.Score += r.cfg.Nexus.BeaconScore

	touched := 0
	for _, n := range r.nexuses {
		if dist(x, y, n.X, n.Y) > r.cfg.Nexus.BeaconRadius {
			continue
		}
		n.addProgress(p.ID, r.cfg.Nexus.BeaconProgress, r.cfg.Nexus)
		r.evaluateNexus(n)
		touched++
	}

	r.emit(newEvent(EvBeaconDeployed, BeaconData{
		PlayerID: p.ID,
		X:        x,
		Y:        y,
		Nexuses:  touched,
	}))
}

func (r *Room) findNexus(id string) *Nexus {
	for _, n := range r.nexuses {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// =============================================================================
// POWER-UPS
// =============================================================================

// spawnPowerUp places one weighted-random power-up away from the pack. Runs
// from the room's spawn timer.
func (r *Room) spawnPowerUp() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || !r.matchActive() {
		return
	}
	if len(r.powerUps) >= r.cfg.PowerUp.MaxActive {
		return
	}

	kind := rollPowerUpKind(r.rng)
	x, y := bestOfNPlacement(r.cfg.Arena, r.occupiedPositions(), r.cfg.PowerUp.PlacementSamples, r.rng)
	pu := &PowerUp{
		ID:       uuid.NewString(),
		Kind:     kind,
		X:        x,
		Y:        y,
		Duration: powerUpDuration(kind, r.cfg.PowerUp),
	}
	r.powerUps = append(r.powerUps, pu)

	r.emit(newEvent(EvPowerUpSpawned, PowerUpData{
		PowerUpID: pu.ID,
		Kind:      pu.Kind,
		X:         pu.X,
		Y:         pu.Y,
	}))
}

// collectPowerUp removes a world power-up and applies it to the collector.
// Removal before apply keeps collection exactly-once even when an explicit
// action races the auto-collect sweep.
func (r *Room) collectPowerUp(p *Player, powerUpID string, now time.Time) {
	idx := -1
	for i, pu := range r.powerUps {
		if pu.ID == powerUpID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	pu := r.powerUps[idx]
	if p.distanceTo(pu.X, pu.Y) > r.cfg.PowerUp.PickupRadius {
		return
	}

	r.powerUps = append(r.powerUps[:idx], r.powerUps[idx+1:]...)
	applyPowerUp(p, pu, r.cfg.PowerUp, now)

	r.emit(newEvent(EvPowerUpCollected, PowerUpData{
		PowerUpID: pu.ID,
		Kind:      pu.Kind,
		X:         pu.X,
		Y:         pu.Y,
		PlayerID:  p.ID,
	}))
}
