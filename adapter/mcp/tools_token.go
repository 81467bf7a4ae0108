package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	credApp "github.com/felixgeelhaar/subscriptions/internal/credentials/application"
)

type tokenStatus struct {
	Stored     bool `json:"stored"`
	Encryption bool `json:"encryption"`
}

func registerTokenTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("token.status").
		Description("Report whether an auth token is stored and encryption is available. The token itself is never returned").
		Handler(func(ctx context.Context, input struct{}) (tokenStatus, error) {
			tokens, err := tokensFor(app)
			if err != nil {
				return tokenStatus{}, err
			}
			_, stored := tokens.Token(ctx)
			return tokenStatus{Stored: stored, Encryption: tokens.CanUseEncryption(ctx)}, nil
		})

	srv.Tool("token.capability").
		Description("Report whether encrypted storage is available").
		Handler(func(ctx context.Context, input struct{}) (map[string]bool, error) {
			tokens, err := tokensFor(app)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"encryption": tokens.CanUseEncryption(ctx)}, nil
		})

	srv.Tool("token.clear").
		Description("Remove the stored auth token").
		Handler(func(ctx context.Context, input struct{}) (map[string]bool, error) {
			tokens, err := tokensFor(app)
			if err != nil {
				return nil, err
			}
			if err := tokens.ClearToken(ctx); err != nil {
				return nil, err
			}
			return map[string]bool{"cleared": true}, nil
		})

	return nil
}

func tokensFor(app *cli.App) (*credApp.TokenStore, error) {
	if app == nil || app.Tokens == nil {
		return nil, errors.New("token store not initialized")
	}
	return app.Tokens, nil
}
