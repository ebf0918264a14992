package game

import (
	"fmt"

	"nexus-arena/internal/config"
)

// Nexus is a fixed capturable control point. Contest progress is tracked per
// player and ownership transfers atomically when a non-controlling leader
// reaches the capture threshold.
type Nexus struct {
	ID          string
	X, Y        float64
	Energy      float64
	Controller  string // Controlling player entity id, "" when neutral
	Progress    map[string]float64
	Contested   bool
	ChargeLevel int
	CaptureRate float64 // Per-nexus capture speed multiplier
}

// captureResult describes an ownership transfer for event emission.
type captureResult struct {
	NewController string
	PrevController string
}

// defaultNexusLayout builds the fixed per-match layout: four quarter-point
// nexuses plus a slower-capturing center nexus.
func defaultNexusLayout(cfg config.GameConfig) []*Nexus {
	w, h := cfg.Arena.Width, cfg.Arena.Height
	positions := [][2]float64{
		{w * 0.2, h * 0.2},
		{w * 0.8, h * 0.2},
		{w * 0.2, h * 0.8},
		{w * 0.8, h * 0.8},
		{w * 0.5, h * 0.5},
	}

	count := cfg.Nexus.Count
	if count > len(positions) {
		count = len(positions)
	}

	nexuses := make([]*Nexus, 0, count)
	for i := 0; i < count; i++ {
		n := &Nexus{
			ID:          fmt.Sprintf("nexus-%d", i+1),
			X:           positions[i][0],
			Y:           positions[i][1],
			Energy:      cfg.Nexus.MaxEnergy,
			Progress:    make(map[string]float64),
			ChargeLevel: 1,
			CaptureRate: 1.0,
		}
		// The center nexus is harder to take and holds the match together.
		if i == 4 {
			n.CaptureRate = 0.7
		}
		nexuses = append(nexuses, n)
	}
	return nexuses
}

// addProgress raises a player's contest progress, scaled by the nexus capture
// rate and clamped to [0, threshold].
func (n *Nexus) addProgress(playerID string, amount float64, cfg config.NexusConfig) {
	p := n.Progress[playerID] + amount*n.CaptureRate
	if p > cfg.CaptureThreshold {
		p = cfg.CaptureThreshold
	}
	if p < 0 {
		p = 0
	}
	n.Progress[playerID] = p
}

// leader returns the player with the highest contest progress.
func (n *Nexus) leader() (string, float64) {
	var leadID string
	var leadProgress float64
	for id, p := range n.Progress {
		// Ties break on id so map iteration order cannot flip the leader.
		if p > leadProgress || (p == leadProgress && (leadID == "" || id < leadID)) {
			leadID = id
			leadProgress = p
		}
	}
	return leadID, leadProgress
}

// evaluateControl recomputes the contested flag and performs an ownership
// transfer when the leader has reached the threshold and is not the current
// controller. On transfer every rival's progress is penalized.
func (n *Nexus) evaluateControl(cfg config.NexusConfig) *captureResult {
	leadID, leadProgress := n.leader()

	n.Contested = false
	if leadID != "" {
		for id, p := range n.Progress {
			if id != leadID && p > leadProgress*cfg.ContestFraction {
				n.Contested = true
				break
			}
		}
	}

	if leadID == "" || leadProgress < cfg.CaptureThreshold || leadID == n.Controller {
		return nil
	}

	prev := n.Controller
	n.Controller = leadID
	for id := range n.Progress {
		if id == leadID {
			continue
		}
		p := n.Progress[id] - cfg.CapturePenalty
		if p <= 0 {
			delete(n.Progress, id)
		} else {
			n.Progress[id] = p
		}
	}
	return &captureResult{NewController: leadID, PrevController: prev}
}

// decayProgress lowers a player's progress, dropping the entry at zero.
func (n *Nexus) decayProgress(playerID string, amount float64) {
	p, ok := n.Progress[playerID]
	if !ok {
		return
	}
	p -= amount
	if p <= 0 {
		delete(n.Progress, playerID)
	} else {
		n.Progress[playerID] = p
	}
}

// releasePlayer removes every trace of a departing player.
func (n *Nexus) releasePlayer(playerID string) {
	delete(n.Progress, playerID)
	if n.Controller == playerID {
		n.Controller = ""
	}
}

// regen restores energy toward the pool ceiling. Called once per broadcast tick.
func (n *Nexus) regen(cfg config.NexusConfig) {
	n.Energy += cfg.EnergyRegen
	if n.Energy > cfg.MaxEnergy {
		n.Energy = cfg.MaxEnergy
	}
}

// reset returns the nexus to its initial neutral state for a rematch.
func (n *Nexus) reset(cfg config.NexusConfig) {
	n.Energy = cfg.MaxEnergy
	n.Controller = ""
	n.Progress = make(map[string]float64)
	n.Contested = false
	n.ChargeLevel = 1
}
