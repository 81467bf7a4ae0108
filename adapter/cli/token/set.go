package token

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var setFromStdin bool

var setCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store an auth token",
	Long:  `Store an auth token. Use --stdin to keep the token out of shell history.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := tokenStore()
		if err != nil {
			return err
		}

		var value string
		switch {
		case setFromStdin:
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			value = strings.TrimSpace(line)
		case len(args) == 1:
			value = args[0]
		}
		if value == "" {
			return errors.New("token is required")
		}

		if err := tokens.SetToken(cmd.Context(), &value); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
		return nil
	},
}

func init() {
	setCmd.Flags().BoolVar(&setFromStdin, "stdin", false, "read the token from standard input")
}
