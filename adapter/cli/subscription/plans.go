package subscription

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var plansJSON bool

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List purchasable plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}

		if err := svc.Load(cmd.Context()); err != nil {
			flushMessages(cmd.ErrOrStderr(), svc)
			return err
		}

		view := svc.View()
		if plansJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(view.Plans)
		}
		if len(view.Plans) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No plans available.")
			return nil
		}
		writePlans(cmd.OutOrStdout(), view.Plans)
		return nil
	},
}

func init() {
	plansCmd.Flags().BoolVar(&plansJSON, "json", false, "output as JSON")
}
