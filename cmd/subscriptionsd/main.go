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

	"github.com/felixgeelhaar/subscriptions/adapter/api"
	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	"github.com/felixgeelhaar/subscriptions/internal/app"
	"github.com/felixgeelhaar/subscriptions/pkg/config"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

const statsInterval = time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	logger := observability.LoggerFromEnv()
	logger.Info("starting subscriptions daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	logger = app.NewLogger(cfg, os.Stderr, "subscriptionsd", cli.Version)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()
	container.Start(ctx)

	if err := container.Service.Load(ctx); err != nil {
		logger.Warn("initial load failed", "error", err)
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.APIAddr
	handler := api.NewSubscriptionHandler(api.SubscriptionHandlerConfig{
		Service: container.Service,
		Metrics: container.Metrics,
		Logger:  logger.With("component", "api"),
	})
	srv := api.NewServer(serverCfg, handler, container.Health, logger)
	go handler.Run(ctx)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()
	go logStats(ctx, container, logger)

	// Each state change is logged in delivery order until shutdown.
	for view := range container.Service.Views(ctx) {
		logger.Info("subscription state",
			"version", view.Version,
			"status", view.Status,
			"ready", view.Ready,
			"plans", len(view.Plans),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown error", "error", err)
	}
	logger.Info("daemon stopped")
	return 0
}

func logStats(ctx context.Context, container *app.Container, logger *slog.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("daemon stats",
				"subscribers", container.Store.SubscriberCount(),
				"version", container.Store.Current().Version(),
				"counters", container.Metrics.Counters(),
			)
		}
	}
}
