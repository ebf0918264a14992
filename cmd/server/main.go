package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nexus-arena/internal/api"
	"nexus-arena/internal/config"
	"nexus-arena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" NEXUS ARENA - GAME SERVER")
	log.Println("================================")

	appConfig := config.Load()
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server

	log.Printf("arena %dx%d, %d Hz physics, %d Hz broadcast, up to %d players / %d rooms",
		int(gameCfg.Arena.Width), int(gameCfg.Arena.Height),
		gameCfg.Tick.PhysicsRate, gameCfg.Tick.BroadcastRate,
		gameCfg.Limits.MaxPlayers, gameCfg.Limits.MaxRooms)

	audit, err := game.NewAuditLog(serverCfg.AuditLogPath)
	if err != nil {
		log.Printf("audit log disabled: %v", err)
	} else if audit != nil {
		log.Printf("audit log: %s", serverCfg.AuditLogPath)
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	hub := api.NewHub()
	manager := game.NewManager(gameCfg, hub, audit)
	manager.OnTick = api.RecordTick
	hub.SetManager(manager)

	// Keep the room and player gauges fresh without touching the hot path.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			api.UpdateRoomCount(manager.RoomCount())
			api.UpdatePlayerCount(hub.ConnectionCount())
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Manager: manager,
		Hub:     hub,
	})

	addr := ":" + strconv.Itoa(serverCfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("API server on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	manager.StopAll()
	audit.Stop()
	log.Println("goodbye")
}
