package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/granth-assistant/internal/adapters/mcp"
	"github.com/kirillkom/granth-assistant/internal/bootstrap"
	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.New(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	go app.WatchBooks(ctx)

	tools := mcpadapter.NewTools(app.RetrieveUC, app.ChatUC, cfg.RAGTopK, logger)
	if err := server.ServeStdio(mcpadapter.NewServer(tools)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
