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

	"github.com/kirillkom/granth-assistant/internal/bootstrap"
	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/observability/logging"
	"github.com/kirillkom/granth-assistant/internal/observability/metrics"
)

const reindexTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, logger, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSReindexSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeReindexRequested(ctx, func(handlerCtx context.Context, req domain.ReindexRequest) error {
		if !req.RequestedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(req.RequestedAt))
		}
		runCtx, cancel := context.WithTimeout(handlerCtx, reindexTimeout)
		defer cancel()

		workerMetrics.StartReindex()
		stats, err := app.ReindexUC.ReindexCorpus(runCtx)
		workerMetrics.FinishReindex(stats.Chunks, stats.Duration, err)
		if err != nil {
			logger.Error("reindex_failed", "request_id", req.RequestID, "reason", req.Reason, "error", err)
			return err
		}
		logger.Info("reindex_completed",
			"request_id", req.RequestID,
			"reason", req.Reason,
			"chunks", stats.Chunks,
			"batches", stats.Batches,
			"duration_ms", stats.Duration.Milliseconds(),
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
