package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	"github.com/felixgeelhaar/subscriptions/internal/app"
	mcpinternal "github.com/felixgeelhaar/subscriptions/internal/mcp"
	"github.com/felixgeelhaar/subscriptions/pkg/config"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := observability.LoggerFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	logger = app.NewLogger(cfg, os.Stderr, "subscriptions-mcp", cli.Version)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()
	container.Start(ctx)

	cliApp := mcpinternal.NewCLIApp(container)
	if err := mcpinternal.Serve(ctx, cfg, cliApp, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		return 1
	}
	return 0
}
