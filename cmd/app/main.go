package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/bootstrap"
	"github.com/crosspostme/crosspost-agent/internal/catalog"
	"github.com/crosspostme/crosspost-agent/internal/config"
	"github.com/crosspostme/crosspost-agent/internal/connection"
	"github.com/crosspostme/crosspost-agent/internal/event"
	"github.com/crosspostme/crosspost-agent/internal/handler"
	"github.com/crosspostme/crosspost-agent/internal/server"
	"github.com/crosspostme/crosspost-agent/internal/sse"
	"github.com/crosspostme/crosspost-agent/internal/store"
)

// ShutdownTimeout is the maximum time allowed for graceful shutdown
const ShutdownTimeout = 10 * time.Second

// StartupRefreshTimeout bounds the initial connected-platform fetch
const StartupRefreshTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer logFile.Close()

	handler.InitValidator()

	client := backend.NewHTTPClient(cfg.BackendURL, backend.StaticToken(cfg.SessionToken), cfg.RequestTimeout)
	bus := event.NewMemoryBus()

	catalogService := catalog.NewService(client)
	connectedStore := store.New(client, bus)
	connectionService := connection.NewService(client, catalogService, connectedStore, bus, cfg.RedirectURI())

	hub := sse.NewHub()
	hub.Start()
	sse.NewSubscriber(hub, bus).Subscribe()

	// Warm the connected-platform snapshot. A failure here is not fatal;
	// the store reports stale state until the next refresh succeeds.
	refreshCtx, cancelRefresh := context.WithTimeout(context.Background(), StartupRefreshTimeout)
	if err := connectedStore.Refresh(refreshCtx); err != nil {
		slog.Warn("Initial connected platform refresh failed", "error", err)
	}
	cancelRefresh()

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies,
		client, catalogService, connectedStore, connectionService, hub)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	select {
	case sig := <-sc:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
		Server: srv,
		Hub:    hub,
	})
}
