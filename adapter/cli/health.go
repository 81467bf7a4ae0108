package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check token store, event bus and billing health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return errors.New("app not initialized")
		}

		health := app.Health.Check(cmd.Context())
		if healthJSON {
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(health); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), health.Status)
			for _, name := range slices.Sorted(maps.Keys(health.Checks)) {
				check := health.Checks[name]
				line := fmt.Sprintf("  %s: %s", name, check.Status)
				if check.Message != "" {
					line += " (" + check.Message + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return errors.New("unhealthy")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(healthCmd)
}
