package game

import (
	"sync"
	"testing"
	"time"

	"nexus-arena/internal/config"
)

// captureSink records everything a room broadcasts, for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	snaps  []*Snapshot
}

func (s *captureSink) BroadcastEvent(roomID string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) BroadcastSnapshot(roomID string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *captureSink) eventsOfType(typ string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// testConfig returns deterministic balance: no crits, so damage assertions
// are exact.
func testConfig() config.GameConfig {
	cfg := config.DefaultGame()
	cfg.Combat.CritChance = 0
	return cfg
}

// newTestRoom builds an unstarted room with a capture sink. Tests drive
// ticks and timers by hand.
func newTestRoom(t *testing.T, cfg config.GameConfig) (*Room, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	r := NewRoom("TEST01", cfg, RoomOptions{Sink: sink, Seed: 1})
	t.Cleanup(r.Stop)
	return r, sink
}

func addTestPlayer(t *testing.T, r *Room, userID, name string) string {
	t.Helper()
	id, _, err := r.AddPlayer(JoinRequest{UserID: userID, Name: name, Ability: AbilityDash})
	if err != nil {
		t.Fatalf("AddPlayer(%s) failed: %v", name, err)
	}
	return id
}

func TestAddPlayerStartsMatch(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())

	addTestPlayer(t, r, "u1", "alice")
	if got := r.Phase(); got != PhaseWaiting {
		t.Errorf("Expected waiting with one player, got %s", got)
	}

	addTestPlayer(t, r, "u2", "bob")
	if got := r.Phase(); got != PhaseSpawn {
		t.Errorf("Expected spawn with two players, got %s", got)
	}

	if got := len(sink.eventsOfType(EvPlayerJoined)); got != 2 {
		t.Errorf("Expected 2 player-joined events, got %d", got)
	}
}

func TestAddPlayerRoomFull(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxPlayers = 2
	r, _ := newTestRoom(t, cfg)

	addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	if _, _, err := r.AddPlayer(JoinRequest{UserID: "u3", Name: "carol"}); err != ErrRoomFull {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
}

func TestReconnectKeepsIdentity(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())

	id1 := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	r.players[id1].Score = 777
	r.RemovePlayer(id1)

	if r.players[id1].Connected {
		t.Error("Expected soft disconnect to keep the entity")
	}

	id2, reconnected, err := r.AddPlayer(JoinRequest{UserID: "u1", Name: "ignored"})
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if !reconnected {
		t.Error("Expected a reconnection")
	}
	if id2 != id1 {
		t.Errorf("Expected the same entity id %s, got %s", id1, id2)
	}
	if r.players[id2].Score != 777 {
		t.Errorf("Expected score to survive reconnect, got %d", r.players[id2].Score)
	}
	if got := len(sink.eventsOfType(EvPlayerReconnected)); got != 1 {
		t.Errorf("Expected 1 player-reconnected event, got %d", got)
	}
}

func TestDisconnectReleasesNexuses(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")
	addTestPlayer(t, r, "u3", "carol")

	n := r.nexuses[0]
	n.Controller = id
	n.Progress[id] = 100

	r.RemovePlayer(id)

	if n.Controller != "" {
		t.Errorf("Expected nexus released on disconnect, still controlled by %s", n.Controller)
	}
	if _, ok := n.Progress[id]; ok {
		t.Error("Expected contest progress cleared on disconnect")
	}
}

func TestInsufficientPlayersEndsMatch(t *testing.T) {
	r, sink := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	if r.Phase() != PhaseSpawn {
		t.Fatalf("Expected running match, got %s", r.Phase())
	}

	r.RemovePlayer(id)

	if got := r.Phase(); got != PhaseEnded {
		t.Errorf("Expected ended after dropping below minimum, got %s", got)
	}
	ended := sink.eventsOfType(EvGameEnded)
	if len(ended) != 1 {
		t.Fatalf("Expected 1 game-ended event, got %d", len(ended))
	}
	if data := ended[0].Data.(GameEndedData); data.Reason != "insufficient-players" {
		t.Errorf("Expected insufficient-players reason, got %s", data.Reason)
	}
}

func TestActionRateLimit(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	r.HandleAction(id, Move{X: 100, Y: 100})
	p := r.players[id]
	if p.TargetX != 100 || p.TargetY != 100 {
		t.Fatalf("Expected first action accepted, target (%v,%v)", p.TargetX, p.TargetY)
	}

	// Immediately after: inside the per-player interval, dropped silently.
	r.HandleAction(id, Move{X: 500, Y: 500})
	if p.TargetX != 100 || p.TargetY != 100 {
		t.Errorf("Expected second action dropped, target (%v,%v)", p.TargetX, p.TargetY)
	}

	p.LastActionTime = time.Now().Add(-r.cfg.Tick.ActionInterval)
	r.HandleAction(id, Move{X: 500, Y: 500})
	if p.TargetX != 500 {
		t.Error("Expected action accepted after the interval")
	}
}

func TestDeadPlayerActionsDropped(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	p := r.players[id]
	p.Alive = false
	r.HandleAction(id, Move{X: 100, Y: 100})
	if p.TargetX == 100 && p.TargetY == 100 {
		t.Error("Expected dead player's action to be dropped")
	}
}

func TestMoveTargetClamped(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(t, cfg)

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	r.HandleAction(id, Move{X: -500, Y: 99999})
	p := r.players[id]

	if p.TargetX != cfg.Arena.Margin {
		t.Errorf("Expected X clamped to %v, got %v", cfg.Arena.Margin, p.TargetX)
	}
	if p.TargetY != cfg.Arena.Height-cfg.Arena.Margin {
		t.Errorf("Expected Y clamped to %v, got %v", cfg.Arena.Height-cfg.Arena.Margin, p.TargetY)
	}
}

func TestMovementNeverOvershoots(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	p := r.players[id]
	p.X, p.Y = 200, 200
	p.TargetX, p.TargetY = 201, 200

	r.physicsTick()

	if p.X > 201 {
		t.Errorf("Expected arrival without overshoot, got X=%v", p.X)
	}
}

func TestRestartOnlyFromEnded(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	addTestPlayer(t, r, "u1", "alice")
	id2 := addTestPlayer(t, r, "u2", "bob")

	r.Restart()
	if got := r.Phase(); got != PhaseSpawn {
		t.Errorf("Expected restart to be a no-op mid-match, got %s", got)
	}

	r.mu.Lock()
	r.players[id2].Score = 500
	r.players[id2].Kills = 3
	r.endMatch("time", time.Now())
	r.mu.Unlock()

	r.Restart()
	if got := r.Phase(); got != PhaseSpawn {
		t.Errorf("Expected new match running after restart, got %s", got)
	}
	if r.matchNumber != 2 {
		t.Errorf("Expected match number 2, got %d", r.matchNumber)
	}
	p := r.players[id2]
	if p.Score != 0 || p.Kills != 0 {
		t.Errorf("Expected transient state reset, got score=%d kills=%d", p.Score, p.Kills)
	}
	if p.Name != "bob" {
		t.Errorf("Expected identity to survive restart, got %s", p.Name)
	}
}

func TestPhaseProgressionFullMatch(t *testing.T) {
	cfg := testConfig()
	cfg.Phase.SpawnDuration = 10 * time.Millisecond
	cfg.Phase.ExpansionDuration = 10 * time.Millisecond
	cfg.Phase.ConflictDuration = 10 * time.Millisecond
	cfg.Phase.PulseDuration = 10 * time.Millisecond
	r, sink := newTestRoom(t, cfg)

	addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	// Give a nexus to alice so the pulse pays out.
	r.mu.Lock()
	aliceID := r.byUser["u1"]
	r.nexuses[0].Controller = aliceID
	r.nexuses[0].ChargeLevel = 2
	r.mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	r.logicTick()

	if got := r.Phase(); got != PhaseEnded {
		t.Fatalf("Expected ended after all phase durations, got %s", got)
	}

	var seen []Phase
	for _, ev := range sink.eventsOfType(EvPhaseChanged) {
		seen = append(seen, ev.Data.(PhaseChangedData).Phase)
	}
	want := []Phase{PhaseExpansion, PhaseConflict, PhasePulse, PhaseEnded}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d phase transitions, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}

	pulses := sink.eventsOfType(EvEnergyPulse)
	if len(pulses) != 1 {
		t.Fatalf("Expected 1 energy-pulse event, got %d", len(pulses))
	}
	grants := pulses[0].Data.(EnergyPulseData).Grants
	if len(grants) != 1 {
		t.Fatalf("Expected 1 pulse grant, got %d", len(grants))
	}
	g := grants[0]
	if g.PlayerID != aliceID || g.ChargeLevel != 2 {
		t.Errorf("Unexpected grant %+v", g)
	}
	if g.Energy != cfg.Phase.PulseEnergyPerCharge*2 {
		t.Errorf("Expected pulse energy %d, got %d", cfg.Phase.PulseEnergyPerCharge*2, g.Energy)
	}

	if len(sink.eventsOfType(EvGameEnded)) != 1 {
		t.Error("Expected exactly one game-ended event")
	}
}

func TestEndedRoomFreezesSimulation(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id := addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	r.mu.Lock()
	r.endMatch("time", time.Now())
	r.mu.Unlock()

	p := r.players[id]
	x, y := p.X, p.Y
	p.TargetX, p.TargetY = x+300, y

	r.physicsTick()

	if p.X != x || p.Y != y {
		t.Error("Expected no movement after the match ended")
	}

	r.HandleAction(id, Attack{TargetID: r.byUser["u2"]})
	if r.players[r.byUser["u2"]].Health != r.cfg.Combat.BaseHealth {
		t.Error("Expected actions to have no combat effect after end")
	}
}

func TestSnapshotLeaderboardSorted(t *testing.T) {
	r, _ := newTestRoom(t, testConfig())

	id1 := addTestPlayer(t, r, "u1", "alice")
	id2 := addTestPlayer(t, r, "u2", "bob")

	r.players[id1].Score = 10
	r.players[id2].Score = 90

	snap := r.Snapshot()
	if len(snap.Leaderboard) != 2 {
		t.Fatalf("Expected 2 leaderboard entries, got %d", len(snap.Leaderboard))
	}
	if snap.Leaderboard[0].ID != id2 {
		t.Errorf("Expected %s on top, got %s", id2, snap.Leaderboard[0].ID)
	}
}

func TestRunLoopBroadcastsSnapshots(t *testing.T) {
	cfg := testConfig()
	r, sink := newTestRoom(t, cfg)

	addTestPlayer(t, r, "u1", "alice")
	addTestPlayer(t, r, "u2", "bob")

	go r.Run()
	time.Sleep(200 * time.Millisecond)
	r.Stop()

	sink.mu.Lock()
	snaps := len(sink.snaps)
	sink.mu.Unlock()
	if snaps == 0 {
		t.Fatal("Expected periodic snapshots from the run loop")
	}
}

func TestOnEmptyFiresOnce(t *testing.T) {
	fired := 0
	sink := &captureSink{}
	r := NewRoom("TEST02", testConfig(), RoomOptions{
		Sink:    sink,
		Seed:    1,
		OnEmpty: func(string) { fired++ },
	})
	defer r.Stop()

	id := addTestPlayer(t, r, "u1", "alice")
	r.RemovePlayer(id)
	r.RemovePlayer(id)

	if fired != 1 {
		t.Errorf("Expected OnEmpty exactly once, fired %d times", fired)
	}
}
