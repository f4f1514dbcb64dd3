// Package main is the entry point for the station game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cronos79/station-game/internal/auth"
	"github.com/Cronos79/station-game/internal/engine"
	"github.com/Cronos79/station-game/internal/infra/storage"
	"github.com/Cronos79/station-game/internal/network"
	"github.com/Cronos79/station-game/internal/platform/config"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/registry"
)

func main() {
	log.Println("[STATION-SERVER] Initializing authoritative universe server...")

	appLogger := logger.NewLogger()
	cfg := config.Load()

	appLogger.Info("Loading module and material registry...")
	reg, err := registry.Load()
	if err != nil {
		appLogger.Error("Failed to load registry: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Registry loaded: %d modules, %d materials", len(reg.Modules()), len(reg.Materials()))

	appLogger.Info("Initializing SQLite database %q...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	universeStore, err := storage.NewSQLiteUniverseStore(db)
	if err != nil {
		appLogger.Error("Failed to initialize snapshot store: %v", err)
		os.Exit(1)
	}
	userRepo := storage.NewSQLiteUserRepository(db)
	sessionRepo := storage.NewSQLiteSessionRepository(db)
	authSvc := auth.NewService(userRepo, sessionRepo, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info("Booting universe engine...")
	eng := engine.NewEngine(cfg, universeStore, reg, appLogger)
	if err := eng.Boot(ctx); err != nil {
		appLogger.Error("Engine boot failed: %v", err)
		os.Exit(1)
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(eng.Universe(), appLogger)
	go hub.Run(ctx)
	eng.SetNotifier(hub)

	eng.Start(ctx)

	// Setup API routes
	mux := http.NewServeMux()
	api := network.NewAPI(cfg, eng, hub, authSvc, reg, appLogger)
	api.RegisterRoutes(mux)
	eventsHandler := network.NewEventsHandler(eng.Universe(), appLogger)
	eventsHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		log.Printf("[STATION-SERVER] HTTP API & WS Server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[STATION-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[STATION-SERVER] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown: %v", err)
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Final snapshot failed: %v", err)
		os.Exit(1)
	}
	log.Println("[STATION-SERVER] Final snapshot written. Goodbye.")
}
