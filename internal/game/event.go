package game

import "time"

// Event types, emitted at the moment of occurrence (independent of the
// snapshot cadence).
const (
	EvPlayerJoined      = "player-joined"
	EvPlayerReconnected = "player-reconnected"
	EvPlayerLeft        = "player-left"
	EvPlayerAttacked    = "player-attacked"
	EvAttackBlocked     = "attack-blocked"
	EvPlayerKilled      = "player-killed"
	EvPlayerRespawned   = "player-respawned"
	EvNexusCaptured     = "nexus-captured"
	EvPowerUpSpawned    = "powerup-spawned"
	EvPowerUpCollected  = "powerup-collected"
	EvBeaconDeployed    = "beacon-deployed"
	EvAchievement       = "achievement"
	EvAbilityUsed       = "ability-used"
	EvPhaseChanged      = "phase-changed"
	EvEnergyPulse       = "energy-pulse"
	EvGameEnded         = "game-ended"
)

// Event is a discrete, one-shot game event delivered to all room members.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix milliseconds
}

func newEvent(typ string, data interface{}) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

// Typed payloads for the discrete events.

// PlayerJoinedData announces a new or reconnected room member.
type PlayerJoinedData struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PlayerLeftData announces a departure.
type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// AttackData carries the outcome of a resolved attack.
type AttackData struct {
	AttackerID  string  `json:"attackerId"`
	TargetID    string  `json:"targetId"`
	Damage      int     `json:"damage"`
	TargetHP    int     `json:"targetHp"`
	KnockbackX  float64 `json:"knockbackX"`
	KnockbackY  float64 `json:"knockbackY"`
	ComboCount  int     `json:"comboCount"`
	Critical    bool    `json:"critical"`
}

// AttackBlockedData names the reason an attack had no effect.
type AttackBlockedData struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
	Reason     string `json:"reason"` // "invincible"
}

// KillData carries kill resolution details.
type KillData struct {
	KillerID        string `json:"killerId"`
	VictimID        string `json:"victimId"`
	KillStreak      int    `json:"killStreak"`
	InfluenceStolen int    `json:"influenceStolen"`
}

// RespawnData announces a respawn.
type RespawnData struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// NexusCapturedData announces an ownership transfer.
type NexusCapturedData struct {
	NexusID   string `json:"nexusId"`
	PlayerID  string `json:"playerId"`
	PrevOwner string `json:"prevOwner,omitempty"`
}

// PowerUpData describes a spawned or collected power-up.
type PowerUpData struct {
	PowerUpID string     `json:"powerUpId"`
	Kind      EffectKind `json:"kind"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	PlayerID  string     `json:"playerId,omitempty"` // Collector, empty on spawn
}

// BeaconData announces an area-progress beacon.
type BeaconData struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Nexuses  int     `json:"nexuses"` // Nexuses that gained progress
}

// AchievementData announces a combo or streak milestone.
type AchievementData struct {
	PlayerID string `json:"playerId"`
	Kind     string `json:"kind"` // "combo"
	Count    int    `json:"count"`
}

// AbilityUsedData announces an ability activation. Scan additionally carries
// the positions of every uncollected power-up.
type AbilityUsedData struct {
	PlayerID string        `json:"playerId"`
	Ability  AbilityKind   `json:"ability"`
	X        float64       `json:"x,omitempty"`
	Y        float64       `json:"y,omitempty"`
	Reveals  []PowerUpData `json:"reveals,omitempty"`
}

// PhaseChangedData announces a phase transition.
type PhaseChangedData struct {
	Phase    Phase `json:"phase"`
	Duration int64 `json:"duration"` // Phase duration in milliseconds, 0 if open-ended
}

// PulseGrant is one controller's share of an energy pulse.
type PulseGrant struct {
	NexusID     string `json:"nexusId"`
	PlayerID    string `json:"playerId"`
	ChargeLevel int    `json:"chargeLevel"`
	Energy      int    `json:"energy"`
	Influence   int    `json:"influence"`
	Score       int    `json:"score"`
}

// EnergyPulseData carries every grant of a single pulse.
type EnergyPulseData struct {
	Grants []PulseGrant `json:"grants"`
}

// FinalStanding is one player's end-of-match stat line.
type FinalStanding struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	FinalScore int    `json:"finalScore"`
	Score      int    `json:"score"`
	Influence  int    `json:"influence"`
	Kills      int    `json:"kills"`
	Deaths     int    `json:"deaths"`
	Captures   int    `json:"captures"`
}

// GameEndedData carries the match result.
type GameEndedData struct {
	WinnerID  string          `json:"winnerId,omitempty"` // Empty on a tie
	Reason    string          `json:"reason"`             // "time" or "insufficient-players"
	Duration  int64           `json:"duration"`           // Match length in milliseconds
	Standings []FinalStanding `json:"standings"`          // Sorted by final score descending
}
