package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"nexus-arena/internal/game"
)

// RouterConfig contains the dependencies needed to construct the HTTP
// router. Designed for dependency injection so tests can stand up the full
// surface with httptest.NewServer.
type RouterConfig struct {
	// Manager is the room directory (required)
	Manager *game.Manager

	// Hub is the WebSocket fan-out (required)
	Hub *Hub

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used when RateLimiter is nil. If both are
	// nil, DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional allow-list. If nil, localhost defaults
	// apply.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks and tests).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is pure: no goroutines, no listeners, no background
// workers. Safe to use directly with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early and save CPU
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)
	r.Use(requestMetrics)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		manager: cfg.Manager,
		hub:     cfg.Hub,
		limiter: rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleGetStats)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.handleListRooms)
			r.Post("/", h.handleCreateRoom)
			r.Get("/{code}/state", h.handleRoomState)
			r.Get("/{code}/leaderboard", h.handleRoomLeaderboard)
			r.Post("/{code}/restart", h.handleRoomRestart)
		})
	})

	r.Get("/ws/{code}", func(w http.ResponseWriter, req *http.Request) {
		cfg.Hub.HandleJoin(w, req, chi.URLParam(req, "code"))
	})

	return r
}

// requestMetrics feeds the HTTP latency and count metrics. The endpoint label
// is the chi route pattern so room codes never become label values.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		endpoint := chi.RouteContext(req.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RecordRequest(req.Method, endpoint, ww.Status(), time.Since(start))
	})
}
