package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nexus-arena/internal/config"
	"nexus-arena/internal/game"
)

// newTestServer stands up the full HTTP surface with relaxed rate limits.
func newTestServer(t *testing.T) (*httptest.Server, *game.Manager) {
	t.Helper()

	hub := NewHub()
	manager := game.NewManager(config.DefaultGame(), hub, nil)
	hub.SetManager(manager)
	t.Cleanup(manager.StopAll)

	router := NewRouter(RouterConfig{
		Manager: manager,
		Hub:     hub,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, manager
}

func TestCreateAndListRooms(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/rooms/", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/rooms failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(created.Code) != 6 {
		t.Errorf("Expected a 6-char code, got %q", created.Code)
	}

	listResp, err := http.Get(ts.URL + "/api/rooms/")
	if err != nil {
		t.Fatalf("GET /api/rooms failed: %v", err)
	}
	defer listResp.Body.Close()

	var rooms []game.RoomInfo
	if err := json.NewDecoder(listResp.Body).Decode(&rooms); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Code != created.Code {
		t.Errorf("Expected the created room listed, got %v", rooms)
	}
}

func TestRoomStateEndpoint(t *testing.T) {
	ts, manager := newTestServer(t)

	room, err := manager.GetOrCreateRoom("ABCD22")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := room.AddPlayer(game.JoinRequest{UserID: "u1", Name: "alice"}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/rooms/abcd22/state")
	if err != nil {
		t.Fatalf("GET state failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if snap.RoomID != "ABCD22" {
		t.Errorf("Expected room ABCD22, got %s", snap.RoomID)
	}
	if len(snap.Players) != 1 || snap.Players[0].Name != "alice" {
		t.Errorf("Expected alice in the snapshot, got %v", snap.Players)
	}
	if snap.Phase != game.PhaseWaiting {
		t.Errorf("Expected waiting phase, got %s", snap.Phase)
	}
}

func TestRoomStateNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/rooms/NOPE22/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats struct {
		Rooms       int               `json:"rooms"`
		Connections int               `json:"connections"`
		RateLimit   map[string]uint64 `json:"rateLimit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if stats.Rooms != 0 || stats.Connections != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
	// This request itself passed the limiter before reaching the handler.
	if stats.RateLimit["allowed"] < 1 {
		t.Errorf("Expected at least one allowed request, got %v", stats.RateLimit)
	}
}

func TestRateLimitRejects(t *testing.T) {
	hub := NewHub()
	manager := game.NewManager(config.DefaultGame(), hub, nil)
	hub.SetManager(manager)
	defer manager.StopAll()

	router := NewRouter(RouterConfig{
		Manager: manager,
		Hub:     hub,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             1,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	first, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("Expected first request allowed, got %d", first.StatusCode)
	}

	second, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429 past the burst, got %d", second.StatusCode)
	}
}

func TestRateLimiterDefaultsCleanupInterval(t *testing.T) {
	// A zero interval must not reach the cleanup ticker.
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 5, Burst: 5})
	defer rl.Stop()

	if !rl.Allow("192.0.2.1") {
		t.Error("Expected the first request allowed")
	}
	stats := rl.GetStats()
	if stats["allowed"] != 1 || stats["rejected"] != 0 {
		t.Errorf("Unexpected stats %v", stats)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		expect string
	}{
		{
			"remote addr",
			func(r *http.Request) { r.RemoteAddr = "10.1.2.3:4444" },
			"10.1.2.3",
		},
		{
			"x-forwarded-for single",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7") },
			"203.0.113.7",
		},
		{
			"x-forwarded-for chain",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			"203.0.113.7",
		},
		{
			"x-real-ip",
			func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.9") },
			"198.51.100.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			if got := GetClientIP(r); got != tt.expect {
				t.Errorf("Expected %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestRestartEndpoint(t *testing.T) {
	ts, manager := newTestServer(t)

	if _, err := manager.GetOrCreateRoom("ABCD22"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/api/rooms/ABCD22/restart", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
