package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("cli.health").
		Description("Check token store, event bus and billing health").
		Handler(func(ctx context.Context, input struct{}) (observability.OverallHealth, error) {
			return checkHealth(ctx, app)
		})

	srv.Tool("cli.version").
		Description("Get CLI version information").
		Handler(func(ctx context.Context, input struct{}) (map[string]string, error) {
			return map[string]string{
				"version":   cli.Version,
				"commit":    cli.Commit,
				"buildDate": cli.BuildDate,
			}, nil
		})

	return nil
}

func checkHealth(ctx context.Context, app *cli.App) (observability.OverallHealth, error) {
	if app == nil {
		return observability.OverallHealth{}, errors.New("app not initialized")
	}
	if app.Health == nil {
		return observability.OverallHealth{Status: observability.HealthStatusHealthy}, nil
	}
	return app.Health.Check(ctx), nil
}
