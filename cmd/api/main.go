package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/granth-assistant/internal/adapters/http"
	"github.com/kirillkom/granth-assistant/internal/bootstrap"
	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/observability/logging"
	"github.com/kirillkom/granth-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, logger, httpMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Retriever: app.RetrieveUC,
		Chat:      app.ChatUC,
		Threads:   app.ThreadsUC,
		Corpus:    app.CorpusUC,
		Reindex:   app.ReindexRequestUC,
	}, httpMetrics, logger).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ComposerTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go app.WatchBooks(ctx)

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "books", len(app.RetrieveUC.Books()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
