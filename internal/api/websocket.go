package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"nexus-arena/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is delegated to the CORS layer; games are joined
		// by code, not by ambient credentials.
		return true
	},
}

// wsMessage is the JSON envelope for every text frame in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// welcomeData is the first message after a successful join or rejoin.
type welcomeData struct {
	PlayerID    string         `json:"playerId"`
	RoomCode    string         `json:"roomCode"`
	Reconnected bool           `json:"reconnected"`
	Snapshot    *game.Snapshot `json:"snapshot"`
}

// client is one WebSocket connection bound to a player in a room.
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan preparedMessage
	roomID   string
	playerID string
	ip       string
	binary   bool // msgpack snapshots instead of JSON
}

// preparedMessage is an already-encoded frame plus its WebSocket type.
type preparedMessage struct {
	messageType int
	payload     []byte
}

// Hub fans room output to every member connection. It implements
// game.Broadcaster, so the simulation never sees sockets.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]bool
	bound map[string]*client // room/player -> current connection

	manager   *game.Manager
	wsLimiter *WebSocketRateLimiter
}

// NewHub creates a hub. SetManager must be called before serving.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*client]bool),
		bound:     make(map[string]*client),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

func bindKey(roomID, playerID string) string {
	return roomID + "/" + playerID
}

// SetManager wires the room directory. Separate from NewHub because the
// manager needs the hub as its broadcaster first.
func (h *Hub) SetManager(m *game.Manager) {
	h.manager = m
}

// BroadcastEvent implements game.Broadcaster. Called under the room lock, so
// it only enqueues.
func (h *Hub) BroadcastEvent(roomID string, ev game.Event) {
	RecordEvent(ev.Type)
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("event marshal failed: %v", err)
		return
	}
	h.sendToRoom(roomID, preparedMessage{websocket.TextMessage, payload}, preparedMessage{websocket.TextMessage, payload})
}

// BroadcastSnapshot implements game.Broadcaster. JSON clients get the
// enveloped snapshot, msgpack clients a binary frame of the same struct.
func (h *Hub) BroadcastSnapshot(roomID string, snap *game.Snapshot) {
	RecordSnapshot()

	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("snapshot marshal failed: %v", err)
		return
	}
	env, err := json.Marshal(wsMessage{Type: "snapshot", Data: data})
	if err != nil {
		return
	}

	bin, err := msgpack.Marshal(snap)
	if err != nil {
		log.Printf("snapshot msgpack failed: %v", err)
		bin = nil
	}

	textMsg := preparedMessage{websocket.TextMessage, env}
	binMsg := textMsg
	if bin != nil {
		binMsg = preparedMessage{websocket.BinaryMessage, bin}
	}
	h.sendToRoom(roomID, textMsg, binMsg)
}

// sendToRoom enqueues a frame for every member, choosing the binary variant
// for msgpack clients. Full buffers drop the frame rather than block the
// simulation.
func (h *Hub) sendToRoom(roomID string, text, binary preparedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		msg := text
		if c.binary {
			msg = binary
		}
		select {
		case c.send <- msg:
			IncrementWSMessages()
		default:
		}
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

// register binds c to its member slot, taking the binding over from any
// previous connection for the same player. The superseded socket is closed;
// its close must not disconnect the entity it no longer owns.
func (h *Hub) register(c *client) {
	key := bindKey(c.roomID, c.playerID)
	h.mu.Lock()
	clients, ok := h.rooms[c.roomID]
	if !ok {
		clients = make(map[*client]bool)
		h.rooms[c.roomID] = clients
	}
	clients[c] = true
	prev := h.bound[key]
	h.bound[key] = c
	h.mu.Unlock()
	if prev != nil {
		prev.conn.Close()
	}
	UpdateWSConnections(h.ConnectionCount())
}

// unregister drops the connection and reports whether it still owned its
// member binding. A superseded connection returns false.
func (h *Hub) unregister(c *client) bool {
	key := bindKey(c.roomID, c.playerID)
	h.mu.Lock()
	if clients, ok := h.rooms[c.roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	owned := h.bound[key] == c
	if owned {
		delete(h.bound, key)
	}
	h.mu.Unlock()
	h.wsLimiter.Release(c.ip)
	UpdateWSConnections(h.ConnectionCount())
	return owned
}

// HandleJoin upgrades the connection and binds it to a room member. Query
// parameters: userId (stable rejoin identity), name, color, ability, and
// codec=msgpack for binary snapshots.
func (h *Hub) HandleJoin(w http.ResponseWriter, r *http.Request, roomCode string) {
	ip := GetClientIP(r)
	if !h.wsLimiter.Acquire(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	room, err := h.manager.GetOrCreateRoom(strings.ToUpper(roomCode))
	if err != nil {
		h.wsLimiter.Release(ip)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	ability := game.AbilityKind(q.Get("ability"))
	if !game.ValidAbility(ability) {
		ability = game.AbilityDash
	}

	playerID, reconnected, err := room.AddPlayer(game.JoinRequest{
		UserID:  q.Get("userId"),
		Name:    q.Get("name"),
		Color:   q.Get("color"),
		Ability: ability,
	})
	if err != nil {
		h.wsLimiter.Release(ip)
		RecordConnectionRejected("room_full")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		// A reconnecting player's entity may still be served by its
		// previous connection.
		if !reconnected {
			room.RemovePlayer(playerID)
		}
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan preparedMessage, sendBufSize),
		roomID:   room.ID,
		playerID: playerID,
		ip:       ip,
		binary:   q.Get("codec") == "msgpack",
	}
	h.register(c)

	// Welcome carries a full snapshot so rejoining clients resync without
	// waiting for the next broadcast.
	c.sendWelcome(playerID, room, reconnected)

	go c.writePump()
	go c.readPump()
}

func (c *client) sendWelcome(playerID string, room *game.Room, reconnected bool) {
	data, err := json.Marshal(welcomeData{
		PlayerID:    playerID,
		RoomCode:    room.ID,
		Reconnected: reconnected,
		Snapshot:    room.Snapshot(),
	})
	if err != nil {
		return
	}
	env, err := json.Marshal(wsMessage{Type: "welcome", Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- preparedMessage{websocket.TextMessage, env}:
	default:
	}
}

// readPump parses inbound frames into actions until the connection dies.
// Malformed and unknown messages are dropped without feedback, matching the
// simulation's silent no-op contract.
func (c *client) readPump() {
	defer func() {
		owned := c.hub.unregister(c)
		c.conn.Close()
		if !owned {
			return
		}
		if room := c.hub.manager.GetRoom(c.roomID); room != nil {
			room.RemovePlayer(c.playerID)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *client) handleMessage(raw []byte) {
	room := c.hub.manager.GetRoom(c.roomID)
	if room == nil {
		return
	}

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "restart":
		room.Restart()
	default:
		action, err := game.DecodeAction(raw)
		if err != nil || action == nil {
			return
		}
		room.HandleAction(c.playerID, action)
	}
}

// writePump flushes the send queue and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.messageType, msg.payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
