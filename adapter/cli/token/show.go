package token

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showReveal bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether a token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := tokenStore()
		if err != nil {
			return err
		}

		value, ok := tokens.Token(cmd.Context())
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No token stored.")
			return nil
		}
		if showReveal {
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token stored (%s)\n", mask(value))
		return nil
	},
}

// mask keeps the last four characters of long tokens.
func mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func init() {
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "print the token itself")
}
