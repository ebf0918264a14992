package game

import (
	"sort"
	"time"
)

// Broadcaster fans room output to all members. The transport layer implements
// it; the simulation never addresses individual sockets.
type Broadcaster interface {
	BroadcastEvent(roomID string, ev Event)
	BroadcastSnapshot(roomID string, snap *Snapshot)
}

// NopBroadcaster discards everything. Used by tests that assert on state.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastEvent(string, Event)        {}
func (NopBroadcaster) BroadcastSnapshot(string, *Snapshot) {}

// PlayerSnapshot is the JSON-safe projection of one player.
type PlayerSnapshot struct {
	ID              string         `json:"id" msgpack:"id"`
	Name            string         `json:"name" msgpack:"name"`
	Color           string         `json:"color" msgpack:"color"`
	X               float64        `json:"x" msgpack:"x"`
	Y               float64        `json:"y" msgpack:"y"`
	TargetX         float64        `json:"targetX" msgpack:"targetX"`
	TargetY         float64        `json:"targetY" msgpack:"targetY"`
	Health          int            `json:"health" msgpack:"health"`
	MaxHealth       int            `json:"maxHealth" msgpack:"maxHealth"`
	Energy          int            `json:"energy" msgpack:"energy"`
	Influence       int            `json:"influence" msgpack:"influence"`
	Score           int            `json:"score" msgpack:"score"`
	Kills           int            `json:"kills" msgpack:"kills"`
	Deaths          int            `json:"deaths" msgpack:"deaths"`
	KillStreak      int            `json:"killStreak" msgpack:"killStreak"`
	ComboCount      int            `json:"comboCount" msgpack:"comboCount"`
	DamageDealt     int            `json:"damageDealt" msgpack:"damageDealt"`
	NexusesCaptured int            `json:"nexusesCaptured" msgpack:"nexusesCaptured"`
	Alive           bool           `json:"alive" msgpack:"alive"`
	Connected       bool           `json:"connected" msgpack:"connected"`
	Invincible      bool           `json:"invincible" msgpack:"invincible"`
	Ability         AbilityKind    `json:"ability" msgpack:"ability"`
	Effects         []ActiveEffect `json:"effects,omitempty" msgpack:"effects,omitempty"`
}

// NexusSnapshot is the JSON-safe projection of one nexus, with the contest
// progress map materialized as plain key/values.
type NexusSnapshot struct {
	ID          string             `json:"id" msgpack:"id"`
	X           float64            `json:"x" msgpack:"x"`
	Y           float64            `json:"y" msgpack:"y"`
	Energy      float64            `json:"energy" msgpack:"energy"`
	Controller  string             `json:"controller,omitempty" msgpack:"controller,omitempty"`
	Progress    map[string]float64 `json:"progress" msgpack:"progress"`
	Contested   bool               `json:"contested" msgpack:"contested"`
	ChargeLevel int                `json:"chargeLevel" msgpack:"chargeLevel"`
	CaptureRate float64            `json:"captureRate" msgpack:"captureRate"`
}

// PowerUpSnapshot is the JSON-safe projection of one world power-up.
type PowerUpSnapshot struct {
	ID       string     `json:"id" msgpack:"id"`
	Kind     EffectKind `json:"kind" msgpack:"kind"`
	X        float64    `json:"x" msgpack:"x"`
	Y        float64    `json:"y" msgpack:"y"`
	Duration int64      `json:"duration" msgpack:"duration"` // Milliseconds, 0 for instant
}

// LeaderboardEntry is one row of the derived leaderboard.
type LeaderboardEntry struct {
	ID          string `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	Score       int    `json:"score" msgpack:"score"`
	Kills       int    `json:"kills" msgpack:"kills"`
	Deaths      int    `json:"deaths" msgpack:"deaths"`
	KillStreak  int    `json:"killStreak" msgpack:"killStreak"`
	DamageDealt int    `json:"damageDealt" msgpack:"damageDealt"`
}

// Snapshot is the full-room state broadcast at the snapshot cadence and
// returned for rejoin requests. Every field survives a plain JSON or msgpack
// round trip.
type Snapshot struct {
	RoomID        string            `json:"roomId" msgpack:"roomId"`
	Phase         Phase             `json:"phase" msgpack:"phase"`
	PhaseStarted  int64             `json:"phaseStarted" msgpack:"phaseStarted"`   // Unix ms
	PhaseDuration int64             `json:"phaseDuration" msgpack:"phaseDuration"` // ms, 0 if open-ended
	MatchNumber   int               `json:"matchNumber" msgpack:"matchNumber"`
	Winner        string            `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Tick          uint64            `json:"tick" msgpack:"tick"`
	Players       []PlayerSnapshot  `json:"players" msgpack:"players"`
	Nexuses       []NexusSnapshot   `json:"nexuses" msgpack:"nexuses"`
	PowerUps      []PowerUpSnapshot `json:"powerUps" msgpack:"powerUps"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard" msgpack:"leaderboard"`
	Timestamp     int64             `json:"timestamp" msgpack:"timestamp"` // Unix ms
}

// buildSnapshot assembles the serializable room state. Caller holds the lock.
func (r *Room) buildSnapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		RoomID:        r.ID,
		Phase:         r.phase,
		PhaseStarted:  r.phaseStart.UnixMilli(),
		PhaseDuration: phaseDuration(r.phase, r.cfg.Phase).Milliseconds(),
		MatchNumber:   r.matchNumber,
		Winner:        r.winner,
		Tick:          r.tick,
		Players:       make([]PlayerSnapshot, 0, len(r.players)),
		Nexuses:       make([]NexusSnapshot, 0, len(r.nexuses)),
		PowerUps:      make([]PowerUpSnapshot, 0, len(r.powerUps)),
		Timestamp:     now.UnixMilli(),
	}

	for _, p := range r.players {
		effects := make([]ActiveEffect, len(p.Effects))
		copy(effects, p.Effects)
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:              p.ID,
			Name:            p.Name,
			Color:           p.Color,
			X:               p.X,
			Y:               p.Y,
			TargetX:         p.TargetX,
			TargetY:         p.TargetY,
			Health:          p.Health,
			MaxHealth:       p.MaxHealth,
			Energy:          p.Energy,
			Influence:       p.Influence,
			Score:           p.Score,
			Kills:           p.Kills,
			Deaths:          p.Deaths,
			KillStreak:      p.KillStreak,
			ComboCount:      p.ComboCount,
			DamageDealt:     p.DamageDealt,
			NexusesCaptured: p.NexusesCaptured,
			Alive:           p.Alive,
			Connected:       p.Connected,
			Invincible:      p.IsInvincible(now),
			Ability:         p.Ability,
			Effects:         effects,
		})
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].ID < snap.Players[j].ID })

	for _, n := range r.nexuses {
		progress := make(map[string]float64, len(n.Progress))
		for id, p := range n.Progress {
			progress[id] = p
		}
		snap.Nexuses = append(snap.Nexuses, NexusSnapshot{
			ID:          n.ID,
			X:           n.X,
			Y:           n.Y,
			Energy:      n.Energy,
			Controller:  n.Controller,
			Progress:    progress,
			Contested:   n.Contested,
			ChargeLevel: n.ChargeLevel,
			CaptureRate: n.CaptureRate,
		})
	}

	for _, pu := range r.powerUps {
		snap.PowerUps = append(snap.PowerUps, PowerUpSnapshot{
			ID:       pu.ID,
			Kind:     pu.Kind,
			X:        pu.X,
			Y:        pu.Y,
			Duration: pu.Duration.Milliseconds(),
		})
	}

	snap.Leaderboard = buildLeaderboard(r.players)
	return snap
}

// buildLeaderboard derives the score-sorted leaderboard rows.
func buildLeaderboard(players map[string]*Player) []LeaderboardEntry {
	rows := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		rows = append(rows, LeaderboardEntry{
			ID:          p.ID,
			Name:        p.Name,
			Score:       p.Score,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
			KillStreak:  p.KillStreak,
			DamageDealt: p.DamageDealt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
