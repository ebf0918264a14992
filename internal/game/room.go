package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"nexus-arena/internal/config"
)

// ErrRoomFull is returned when a join would exceed the room player cap.
var ErrRoomFull = errors.New("room is full")

var playerColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4",
	"#ffeaa7", "#fd79a8", "#00b894", "#6c5ce7",
	"#fdcb6e", "#e17055",
}

// RoomOptions wires a room to its collaborators.
type RoomOptions struct {
	Sink    Broadcaster            // Required; NopBroadcaster for tests
	Audit   *AuditLog              // Optional JSONL event audit trail
	OnEmpty func(roomID string)    // Called once when the last player leaves
	OnTick  func(d time.Duration)  // Optional physics-tick duration observer
	Seed    int64                  // 0 means seed from the clock
}

// Room is one independent match simulation. A single mutex serializes every
// mutation: inbound actions, the physics tick, the broadcast tick and all
// deferred timers take it before touching any entity.
type Room struct {
	mu  sync.Mutex
	ID  string
	cfg config.GameConfig

	sink    Broadcaster
	audit   *AuditLog
	onEmpty func(string)
	onTick  func(time.Duration)

	phase       Phase
	phaseStart  time.Time
	gameStart   time.Time
	winner      string
	matchNumber int

	players map[string]*Player // By entity id
	byUser  map[string]string  // userID -> entity id, for reconnection
	nexuses []*Nexus
	powerUps []*PowerUp

	rng  *rand.Rand
	tick uint64

	stopChan chan struct{}
	stopOnce sync.Once
	stopped  bool

	respawnTimers map[string]*time.Timer
	nextPlayerSeq int
}

// NewRoom creates a room in the waiting phase. Call Run to start its timers.
func NewRoom(id string, cfg config.GameConfig, opts RoomOptions) *Room {
	sink := opts.Sink
	if sink == nil {
		sink = NopBroadcaster{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Room{
		ID:            id,
		cfg:           cfg,
		sink:          sink,
		audit:         opts.Audit,
		onEmpty:       opts.OnEmpty,
		onTick:        opts.OnTick,
		phase:         PhaseWaiting,
		phaseStart:    time.Now(),
		matchNumber:   1,
		players:       make(map[string]*Player),
		byUser:        make(map[string]string),
		nexuses:       defaultNexusLayout(cfg),
		rng:           rand.New(rand.NewSource(seed)),
		stopChan:      make(chan struct{}),
		respawnTimers: make(map[string]*time.Timer),
	}
}

// Run drives the room's timers until Stop. Intended as `go room.Run()`.
func (r *Room) Run() {
	physics := time.NewTicker(time.Second / time.Duration(r.cfg.Tick.PhysicsRate))
	broadcast := time.NewTicker(time.Second / time.Duration(r.cfg.Tick.BroadcastRate))
	spawn := time.NewTimer(r.rollSpawnInterval())
	defer physics.Stop()
	defer broadcast.Stop()
	defer spawn.Stop()

	for {
		select {
		case <-physics.C:
			start := time.Now()
			r.physicsTick()
			if r.onTick != nil {
				r.onTick(time.Since(start))
			}
		case <-broadcast.C:
			r.logicTick()
		case <-spawn.C:
			r.spawnPowerUp()
			spawn.Reset(r.rollSpawnInterval())
		case <-r.stopChan:
			return
		}
	}
}

// Stop halts the room's timers and cancels pending respawns. Safe to call
// more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.cancelRespawns()
		r.mu.Unlock()
		close(r.stopChan)
	})
}

// rollSpawnInterval picks the next random power-up spawn delay.
func (r *Room) rollSpawnInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := r.cfg.PowerUp.SpawnIntervalMax - r.cfg.PowerUp.SpawnIntervalMin
	if span <= 0 {
		return r.cfg.PowerUp.SpawnIntervalMin
	}
	return r.cfg.PowerUp.SpawnIntervalMin + time.Duration(r.rng.Int63n(int64(span)))
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

// JoinRequest identifies a joining connection.
type JoinRequest struct {
	UserID  string // Stable across reconnects
	Name    string
	Color   string
	Ability AbilityKind
}

// AddPlayer inserts a new player, or rebinds a disconnected one with the same
// userId to its existing entity. Returns the player's entity id and whether
// this was a reconnection.
func (r *Room) AddPlayer(req JoinRequest) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byUser[req.UserID]; ok && req.UserID != "" {
		if p, ok := r.players[id]; ok {
			p.Connected = true
			r.emit(newEvent(EvPlayerReconnected, PlayerJoinedData{
				PlayerID: p.ID, Name: p.Name, Color: p.Color, X: p.X, Y: p.Y,
			}))
			log.Printf("room %s: %s reconnected", r.ID, p.Name)
			return p.ID, true, nil
		}
	}

	if len(r.players) >= r.cfg.Limits.MaxPlayers {
		return "", false, ErrRoomFull
	}

	r.nextPlayerSeq++
	id := fmt.Sprintf("p%d", r.nextPlayerSeq)
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("player-%s", id)
	}
	color := req.Color
	if color == "" {
		color = playerColors[(r.nextPlayerSeq-1)%len(playerColors)]
	}

	p := newPlayer(id, req.UserID, name, color, req.Ability, r.cfg)
	p.X, p.Y = farthestSpawn(r.cfg.Arena, r.occupiedPositions(), r.rng)
	p.TargetX, p.TargetY = p.X, p.Y

	r.players[id] = p
	if req.UserID != "" {
		r.byUser[req.UserID] = id
	}

	r.emit(newEvent(EvPlayerJoined, PlayerJoinedData{
		PlayerID: p.ID, Name: p.Name, Color: p.Color, X: p.X, Y: p.Y,
	}))
	log.Printf("room %s: %s joined (%d players)", r.ID, p.Name, len(r.players))

	if r.phase == PhaseWaiting && r.connectedCount() >= r.cfg.Limits.MinPlayers {
		r.startMatch(time.Now())
	}
	return p.ID, false, nil
}

// RemovePlayer soft-disconnects a player: the entity stays for the lifetime
// of the room so the same userId can rebind, but all nexus ownership and
// contest progress is released immediately.
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()

	p, ok := r.players[playerID]
	if !ok || !p.Connected {
		r.mu.Unlock()
		return
	}
	p.Connected = false

	for _, n := range r.nexuses {
		n.releasePlayer(playerID)
		n.evaluateControl(r.cfg.Nexus)
	}

	r.emit(newEvent(EvPlayerLeft, PlayerLeftData{PlayerID: p.ID, Name: p.Name}))
	log.Printf("room %s: %s left (%d connected)", r.ID, p.Name, r.connectedCount())

	empty := r.connectedCount() == 0
	if !empty && r.matchActive() && r.connectedCount() < r.cfg.Limits.MinPlayers {
		r.endMatch("insufficient-players", time.Now())
	}
	r.mu.Unlock()

	if empty {
		r.Stop()
		if r.onEmpty != nil {
			r.onEmpty(r.ID)
		}
	}
}

// Restart begins a rematch. Only valid from the ended phase: player identity,
// name, color and ability survive while all transient state resets.
func (r *Room) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseEnded {
		return
	}

	now := time.Now()
	r.matchNumber++
	r.winner = ""
	r.powerUps = nil
	for _, n := range r.nexuses {
		n.reset(r.cfg.Nexus)
	}

	occupied := make([][2]float64, 0, len(r.players))
	for _, p := range r.players {
		p.resetForMatch(r.cfg)
		p.X, p.Y = farthestSpawn(r.cfg.Arena, occupied, r.rng)
		p.TargetX, p.TargetY = p.X, p.Y
		occupied = append(occupied, [2]float64{p.X, p.Y})
	}

	r.phase = PhaseWaiting
	r.phaseStart = now
	r.emit(newEvent(EvPhaseChanged, PhaseChangedData{Phase: PhaseWaiting}))
	log.Printf("room %s: match %d restarting", r.ID, r.matchNumber)

	if r.connectedCount() >= r.cfg.Limits.MinPlayers {
		r.startMatch(now)
	}
}

// startMatch moves waiting -> spawn. Triggered by player count, not time, so
// it does not emit phase-changed per the broadcast contract.
func (r *Room) startMatch(now time.Time) {
	r.phase = PhaseSpawn
	r.phaseStart = now
	r.gameStart = now
	log.Printf("room %s: match %d started", r.ID, r.matchNumber)
}

func (r *Room) occupiedPositions() [][2]float64 {
	occupied := make([][2]float64, 0, len(r.players))
	for _, p := range r.players {
		occupied = append(occupied, [2]float64{p.X, p.Y})
	}
	return occupied
}

func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (r *Room) matchActive() bool {
	return r.phase != PhaseWaiting && r.phase != PhaseEnded
}

// =============================================================================
// ACTION DISPATCH
// =============================================================================

// HandleAction validates and routes one inbound command. Rejection is always
// silent: a dropped action simply has no effect.
func (r *Room) HandleAction(playerID string, a Action) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.phase == PhaseEnded {
		return
	}
	p, ok := r.players[playerID]
	if !ok || !p.Connected || !p.Alive {
		return
	}
	// One accepted action per interval per player. More recent submissions
	// are dropped without feedback: this is the anti-spam boundary.
	if now.Sub(p.LastActionTime) < r.cfg.Tick.ActionInterval {
		return
	}
	p.LastActionTime = now

	switch act := a.(type) {
	case Move:
		p.TargetX, p.TargetY = clampToArena(act.X, act.Y, r.cfg.Arena)
	case Harvest:
		r.harvest(p, act.NexusID, now)
	case DeployBeacon:
		x, y := clampToArena(act.X, act.Y, r.cfg.Arena)
		r.deployBeacon(p, x, y)
	case BoostNexus:
		r.boostNexus(p, act.NexusID)
	case Attack:
		r.resolveAttack(p, act.TargetID, now)
	case Defend:
		r.defend(p, now)
	case CollectPowerUp:
		r.collectPowerUp(p, act.PowerUpID, now)
	case UseAbility:
		x, y := clampToArena(act.X, act.Y, r.cfg.Arena)
		r.useAbility(p, x, y, now)
	}
}

// =============================================================================
// PHYSICS TICK (high frequency, never broadcasts)
// =============================================================================

func (r *Room) physicsTick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.phase == PhaseEnded {
		return
	}
	now := time.Now()
	dt := 1.0 / float64(r.cfg.Tick.PhysicsRate)
	r.tick++

	for _, p := range r.players {
		if !p.Alive || !p.Connected {
			continue
		}
		r.integrate(p, dt)
		r.sweepAutoCollect(p, now)
		r.sweepPassiveCapture(p)
	}
}

// integrate moves a player toward its target, never overshooting.
func (r *Room) integrate(p *Player, dt float64) {
	d := p.distanceTo(p.TargetX, p.TargetY)
	if d <= r.cfg.Movement.ArriveEpsilon {
		return
	}
	ratio := p.Speed * dt / d
	if ratio > 1 {
		ratio = 1
	}
	p.X += (p.TargetX - p.X) * ratio
	p.Y += (p.TargetY - p.Y) * ratio
}

// sweepAutoCollect picks up any world power-up in pickup range, through the
// same path as an explicit collect action.
func (r *Room) sweepAutoCollect(p *Player, now time.Time) {
	var inRange []string
	for _, pu := range r.powerUps {
		if p.distanceTo(pu.X, pu.Y) <= r.cfg.PowerUp.PickupRadius {
			inRange = append(inRange, pu.ID)
		}
	}
	for _, id := range inRange {
		r.collectPowerUp(p, id, now)
	}
}

// sweepPassiveCapture accrues contest progress for every nexus in range.
func (r *Room) sweepPassiveCapture(p *Player) {
	if !r.matchActive() {
		return
	}
	for _, n := range r.nexuses {
		if p.distanceTo(n.X, n.Y) > r.cfg.Nexus.HarvestRadius {
			continue
		}
		n.addProgress(p.ID, r.cfg.Nexus.PassiveProgress, r.cfg.Nexus)
		r.evaluateNexus(n)
	}
}

// =============================================================================
// LOGIC / BROADCAST TICK (low frequency)
// =============================================================================

func (r *Room) logicTick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	now := time.Now()

	r.advancePhases(now)

	if r.phase != PhaseEnded {
		for _, n := range r.nexuses {
			n.regen(r.cfg.Nexus)
			r.decayContest(n)
		}
		for _, p := range r.players {
			p.expireEffects(now)
		}
		if r.matchActive() && r.connectedCount() < r.cfg.Limits.MinPlayers {
			r.endMatch("insufficient-players", now)
		}
	}

	r.sink.BroadcastSnapshot(r.ID, r.buildSnapshot(now))
}

// decayContest erodes contest progress of players out of range or gone.
func (r *Room) decayContest(n *Nexus) {
	for id := range n.Progress {
		p, ok := r.players[id]
		if ok && p.Connected && p.distanceTo(n.X, n.Y) <= r.cfg.Nexus.DecayRadius {
			continue
		}
		n.decayProgress(id, r.cfg.Nexus.DecayAmount)
	}
	n.evaluateControl(r.cfg.Nexus)
}

// advancePhases applies every due time-driven transition. Transitions land on
// exact phase boundaries so short test durations cannot drift.
func (r *Room) advancePhases(now time.Time) {
	for {
		d := phaseDuration(r.phase, r.cfg.Phase)
		if d == 0 || now.Sub(r.phaseStart) < d {
			return
		}
		boundary := r.phaseStart.Add(d)
		next, ok := nextPhase(r.phase)
		if !ok {
			return
		}
		if next == PhaseEnded {
			r.endMatch("time", boundary)
			return
		}
		r.phase = next
		r.phaseStart = boundary
		r.emit(newEvent(EvPhaseChanged, PhaseChangedData{
			Phase:    next,
			Duration: phaseDuration(next, r.cfg.Phase).Milliseconds(),
		}))
		if next == PhasePulse {
			r.energyPulse()
		}
	}
}

// energyPulse pays out every controlled nexus to its controller, scaled by
// charge level.
func (r *Room) energyPulse() {
	var grants []PulseGrant
	for _, n := range r.nexuses {
		if n.Controller == "" {
			continue
		}
		p, ok := r.players[n.Controller]
		if !ok {
			continue
		}
		g := PulseGrant{
			NexusID:     n.ID,
			PlayerID:    p.ID,
			ChargeLevel: n.ChargeLevel,
			Energy:      r.cfg.Phase.PulseEnergyPerCharge * n.ChargeLevel,
			Influence:   r.cfg.Phase.PulseInfluencePerCharge * n.ChargeLevel,
			Score:       r.cfg.Phase.PulseScorePerCharge * n.ChargeLevel,
		}
		p.Energy += g.Energy
		p.Influence += g.Influence
		p.Score += g.Score
		grants = append(grants, g)
	}
	r.emit(newEvent(EvEnergyPulse, EnergyPulseData{Grants: grants}))
}

// endMatch finalizes scoring and freezes the room in the ended phase until a
// restart. Pending respawns are cancelled; a timer firing afterwards is a bug.
func (r *Room) endMatch(reason string, now time.Time) {
	if r.phase == PhaseEnded {
		return
	}
	r.phase = PhaseEnded
	r.phaseStart = now
	r.cancelRespawns()

	standings, winner := computeStandings(r.players, r.cfg.Phase)
	r.winner = winner

	duration := int64(0)
	if !r.gameStart.IsZero() {
		duration = now.Sub(r.gameStart).Milliseconds()
	}

	r.emit(newEvent(EvPhaseChanged, PhaseChangedData{Phase: PhaseEnded}))
	r.emit(newEvent(EvGameEnded, GameEndedData{
		WinnerID:  winner,
		Reason:    reason,
		Duration:  duration,
		Standings: standings,
	}))
	log.Printf("room %s: match %d ended (%s), winner=%q", r.ID, r.matchNumber, reason, winner)
}

func (r *Room) cancelRespawns() {
	for id, t := range r.respawnTimers {
		t.Stop()
		delete(r.respawnTimers, id)
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// emit delivers a discrete event to all members. Caller holds the lock; the
// sink must not block.
func (r *Room) emit(ev Event) {
	r.sink.BroadcastEvent(r.ID, ev)
	if r.audit != nil {
		r.audit.Record(r.ID, ev)
	}
}

// Snapshot returns the JSON-safe room state, used for rejoin requests and
// the periodic broadcast alike.
func (r *Room) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildSnapshot(time.Now())
}

// Phase returns the current match phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// ConnectedCount returns the number of connected members.
func (r *Room) ConnectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectedCount()
}
