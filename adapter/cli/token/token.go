package token

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	credApp "github.com/felixgeelhaar/subscriptions/internal/credentials/application"
)

// Cmd is the token command group.
var Cmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored auth token",
	Long:  `Inspect, replace or clear the auth token kept in the secure store.`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(capabilityCmd)
}

func tokenStore() (*credApp.TokenStore, error) {
	app := cli.GetApp()
	if app == nil || app.Tokens == nil {
		return nil, errors.New("token store not initialized")
	}
	return app.Tokens, nil
}
