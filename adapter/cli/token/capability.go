package token

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var capabilityJSON bool

var capabilityCmd = &cobra.Command{
	Use:   "capability",
	Short: "Report whether encrypted storage is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := tokenStore()
		if err != nil {
			return err
		}

		available := tokens.CanUseEncryption(cmd.Context())
		if capabilityJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"encryption": available,
			})
		}
		if available {
			fmt.Fprintln(cmd.OutOrStdout(), "Encrypted storage: available")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Encrypted storage: unavailable")
		}
		return nil
	},
}

func init() {
	capabilityCmd.Flags().BoolVar(&capabilityJSON, "json", false, "output as JSON")
}
