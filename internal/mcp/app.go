package mcp

import (
	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	"github.com/felixgeelhaar/subscriptions/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
	cliApp := cli.NewApp(container.Service, container.Tokens, container.Health)
	cliApp.SetMetrics(container.Metrics)
	if container.Sandbox != nil {
		cliApp.SetSandbox(container.Sandbox)
	}
	return cliApp
}
