package subscription

import (
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscription status",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}

		loadErr := svc.Load(cmd.Context())
		flushMessages(cmd.ErrOrStderr(), svc)
		if err := writeView(cmd.OutOrStdout(), svc.View(), statusJSON); err != nil {
			return err
		}
		return loadErr
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}
