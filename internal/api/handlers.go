package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nexus-arena/internal/game"
)

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	manager *game.Manager
	hub     *Hub
	limiter *IPRateLimiter
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"rooms":       h.manager.RoomCount(),
		"connections": h.hub.ConnectionCount(),
		"rateLimit":   h.limiter.GetStats(),
	})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.ListRooms())
}

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.manager.CreateRoom()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.Printf("room %s created via API", room.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"code": room.ID})
}

func (h *routerHandlers) handleRoomState(w http.ResponseWriter, r *http.Request) {
	room := h.roomFromURL(w, r)
	if room == nil {
		return
	}
	writeJSON(w, room.Snapshot())
}

func (h *routerHandlers) handleRoomLeaderboard(w http.ResponseWriter, r *http.Request) {
	room := h.roomFromURL(w, r)
	if room == nil {
		return
	}
	writeJSON(w, room.Snapshot().Leaderboard)
}

func (h *routerHandlers) handleRoomRestart(w http.ResponseWriter, r *http.Request) {
	room := h.roomFromURL(w, r)
	if room == nil {
		return
	}
	room.Restart()
	writeJSON(w, map[string]string{"status": "ok"})
}

// roomFromURL resolves the {code} URL param, writing a 404 on a miss.
func (h *routerHandlers) roomFromURL(w http.ResponseWriter, r *http.Request) *game.Room {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	room := h.manager.GetRoom(code)
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return nil
	}
	return room
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
