package bootstrap

import (
	"context"
	"log/slog"

	"github.com/crosspostme/crosspost-agent/internal/server"
	"github.com/crosspostme/crosspost-agent/internal/sse"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server *server.Server
	Hub    *sse.Hub
}

// GracefulShutdown performs graceful shutdown of all application components.
// It shuts down in the correct order:
// 1. HTTP server (stop accepting new requests, drain in-flight handlers)
// 2. SSE hub (close all subscriber channels)
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if err := components.Server.Stop(ctx); err != nil {
		slog.Error(LogMsgServerForcedClose, "error", err)
	}

	if components.Hub != nil {
		slog.Info(LogMsgShuttingDownHub)
		components.Hub.Stop()
	}

	slog.Info(LogMsgServerStopped)
}
