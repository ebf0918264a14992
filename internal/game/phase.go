package game

import (
	"sort"
	"time"

	"nexus-arena/internal/config"
)

// Phase is the match phase. Phases only move forward; restart is the only way
// back to waiting.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseSpawn     Phase = "spawn"
	PhaseExpansion Phase = "expansion"
	PhaseConflict  Phase = "conflict"
	PhasePulse     Phase = "pulse"
	PhaseEnded     Phase = "ended"
)

// phaseDuration returns how long a phase lasts before the time-driven
// transition. waiting and ended are open-ended.
func phaseDuration(p Phase, cfg config.PhaseConfig) time.Duration {
	switch p {
	case PhaseSpawn:
		return cfg.SpawnDuration
	case PhaseExpansion:
		return cfg.ExpansionDuration
	case PhaseConflict:
		return cfg.ConflictDuration
	case PhasePulse:
		return cfg.PulseDuration
	}
	return 0
}

// nextPhase returns the successor of a timed phase.
func nextPhase(p Phase) (Phase, bool) {
	switch p {
	case PhaseSpawn:
		return PhaseExpansion, true
	case PhaseExpansion:
		return PhaseConflict, true
	case PhaseConflict:
		return PhasePulse, true
	case PhasePulse:
		return PhaseEnded, true
	}
	return p, false
}

// computeStandings recomputes every player's final score and returns the
// standings sorted descending plus the winner. A tie for first yields no
// winner.
func computeStandings(players map[string]*Player, cfg config.PhaseConfig) ([]FinalStanding, string) {
	standings := make([]FinalStanding, 0, len(players))
	for _, p := range players {
		final := p.Score +
			p.Influence*cfg.InfluenceWeight +
			p.Kills*cfg.KillWeight -
			p.Deaths*cfg.DeathPenalty
		standings = append(standings, FinalStanding{
			PlayerID:   p.ID,
			Name:       p.Name,
			FinalScore: final,
			Score:      p.Score,
			Influence:  p.Influence,
			Kills:      p.Kills,
			Deaths:     p.Deaths,
			Captures:   p.NexusesCaptured,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].FinalScore != standings[j].FinalScore {
			return standings[i].FinalScore > standings[j].FinalScore
		}
		return standings[i].PlayerID < standings[j].PlayerID
	})

	winner := ""
	if len(standings) > 0 {
		winner = standings[0].PlayerID
		if len(standings) > 1 && standings[1].FinalScore == standings[0].FinalScore {
			winner = ""
		}
	}
	return standings, winner
}
