package game

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"nexus-arena/internal/config"
)

// ErrTooManyRooms is returned when room creation would exceed the cap.
var ErrTooManyRooms = errors.New("room limit reached")

// RoomInfo is returned by the API for the room list.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   Phase  `json:"phase"`
}

// Manager holds every live room by code. Rooms are created explicitly or on
// first join and removed when their last player disconnects.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg   config.GameConfig
	sink  Broadcaster
	audit *AuditLog

	// OnTick, when set before any room is created, observes every room's
	// physics tick duration.
	OnTick func(d time.Duration)
}

// NewManager creates an empty room directory. Every room it creates shares
// the one broadcaster and audit log.
func NewManager(cfg config.GameConfig, sink Broadcaster, audit *AuditLog) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		sink:  sink,
		audit: audit,
	}
}

// GetRoom returns the room for a code, or nil.
func (m *Manager) GetRoom(code string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[code]
}

// GetOrCreateRoom returns the room for the given code, creating and starting
// it if needed.
func (m *Manager) GetOrCreateRoom(code string) (*Room, error) {
	if code == "" {
		return nil, errors.New("empty room code")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		return r, nil
	}
	return m.startRoom(code)
}

// CreateRoom generates a unique 6-char code, starts the room and returns it.
func (m *Manager) CreateRoom() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		code := generateCode(6)
		if _, exists := m.rooms[code]; exists {
			continue
		}
		return m.startRoom(code)
	}
}

// startRoom creates, registers and runs a room. Caller holds m.mu.
func (m *Manager) startRoom(code string) (*Room, error) {
	if len(m.rooms) >= m.cfg.Limits.MaxRooms {
		return nil, ErrTooManyRooms
	}
	r := NewRoom(code, m.cfg, RoomOptions{
		Sink:    m.sink,
		Audit:   m.audit,
		OnEmpty: m.removeRoom,
		OnTick:  m.OnTick,
	})
	m.rooms[code] = r
	go r.Run()
	return r, nil
}

func (m *Manager) removeRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		r.Stop()
		delete(m.rooms, code)
	}
}

// ListRooms returns all active rooms sorted by code.
func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for code, r := range m.rooms {
		out = append(out, RoomInfo{
			Code:    code,
			Players: r.ConnectedCount(),
			Phase:   r.Phase(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// StopAll tears down every room, for server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}

// Room codes avoid easily-confused characters.
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = codeChars[0]
			continue
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
