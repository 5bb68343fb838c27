package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/granth-assistant/internal/bootstrap"
	"github.com/kirillkom/granth-assistant/internal/cli"
	"github.com/kirillkom/granth-assistant/internal/config"
	"github.com/kirillkom/granth-assistant/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(func(ctx context.Context) (cli.Deps, func(), error) {
		cfg := config.Load()
		logger := logging.New(os.Stderr, "granthctl", cfg.LogLevel)
		slog.SetDefault(logger)
		app, err := bootstrap.New(ctx, cfg, logger, nil)
		if err != nil {
			return cli.Deps{}, nil, err
		}
		return cli.Deps{
			Corpus:    app.Corpus,
			Requests:  app.ReindexRequestUC,
			Reindexer: app.ReindexUC,
			Resolver:  app.RetrieveUC,
		}, app.Close, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
