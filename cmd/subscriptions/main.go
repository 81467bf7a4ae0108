package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	"github.com/felixgeelhaar/subscriptions/adapter/cli/mcp"
	"github.com/felixgeelhaar/subscriptions/adapter/cli/subscription"
	"github.com/felixgeelhaar/subscriptions/adapter/cli/token"
	"github.com/felixgeelhaar/subscriptions/internal/app"
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
	logger = app.NewLogger(cfg, os.Stderr, "subscriptions", cli.Version)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()
	container.Start(ctx)

	cliApp := cli.NewApp(container.Service, container.Tokens, container.Health)
	cliApp.SetMetrics(container.Metrics)
	if container.Sandbox != nil {
		cliApp.SetSandbox(container.Sandbox)
	}
	cli.SetApp(cliApp)

	cli.AddCommand(subscription.Cmd)
	cli.AddCommand(token.Cmd)
	cli.AddCommand(mcp.Cmd)

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
