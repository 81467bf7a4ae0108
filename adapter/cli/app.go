package cli

import (
	credApp "github.com/felixgeelhaar/subscriptions/internal/credentials/application"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/infrastructure/billing"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	Service *subApp.Service
	Tokens  *credApp.TokenStore
	Health  *observability.HealthRegistry
	Metrics *observability.InMemoryMetrics

	// Sandbox is set only when billing runs against the local sandbox.
	Sandbox *billing.Sandbox
}

// NewApp creates a new CLI application with the provided services.
func NewApp(service *subApp.Service, tokens *credApp.TokenStore, health *observability.HealthRegistry) *App {
	return &App{
		Service: service,
		Tokens:  tokens,
		Health:  health,
	}
}

// SetSandbox updates the sandbox billing collaborator.
func (a *App) SetSandbox(sandbox *billing.Sandbox) {
	a.Sandbox = sandbox
}

// SetMetrics updates the metrics sink.
func (a *App) SetMetrics(metrics *observability.InMemoryMetrics) {
	a.Metrics = metrics
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
