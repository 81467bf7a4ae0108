package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose subscription data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	jsonResource(srv, "subscriptions://state", "Subscription State",
		"Current subscription view as last observed, without contacting billing",
		func(ctx context.Context) (any, error) {
			svc, err := serviceFor(app)
			if err != nil {
				return nil, err
			}
			return svc.View(), nil
		})

	jsonResource(srv, "subscriptions://plans", "Plans",
		"Purchasable plans, loading the catalog if needed",
		func(ctx context.Context) (any, error) {
			result, err := subscriptionStatus(ctx, app, statusInput{})
			if err != nil {
				return nil, err
			}
			return result.View.Plans, nil
		})

	jsonResource(srv, "subscriptions://health", "Health",
		"Health of the token store, event bus and billing collaborator",
		func(ctx context.Context) (any, error) {
			return checkHealth(ctx, app)
		})

	jsonResource(srv, "subscriptions://metrics", "Metrics",
		"Counters recorded by this process",
		func(ctx context.Context) (any, error) {
			if app == nil || app.Metrics == nil {
				return nil, errors.New("metrics not available")
			}
			return app.Metrics.Counters(), nil
		})

	return nil
}

func jsonResource(srv *mcp.Server, uri, name, description string, load func(ctx context.Context) (any, error)) {
	srv.Resource(uri).
		Name(name).
		Description(description).
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			value, err := load(ctx)
			if err != nil {
				return nil, err
			}
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return nil, err
			}
			return &mcp.ResourceContent{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
