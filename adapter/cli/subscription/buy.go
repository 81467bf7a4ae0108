package subscription

import (
	"fmt"

	"github.com/spf13/cobra"

	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

var (
	buyReset bool
	buyJSON  bool
)

var buyCmd = &cobra.Command{
	Use:   "buy <plan>",
	Short: "Purchase a plan",
	Long: `Purchase one of the plans: yearly, monthly, uk or netherlands.

With --reset the stored auth token is cleared first, so the purchase
starts a new account.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}
		plan, err := domain.ParsePlanKey(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := svc.Load(ctx); err != nil {
			flushMessages(cmd.ErrOrStderr(), svc)
			return err
		}

		result, err := svc.Buy(ctx, plan, subApp.BuyOptions{Reset: buyReset})
		flushMessages(cmd.ErrOrStderr(), svc)
		if err != nil {
			return err
		}

		if !buyJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "Purchase %s: %s\n", result.State, plan)
		}
		return writeView(cmd.OutOrStdout(), svc.View(), buyJSON)
	},
}

func init() {
	buyCmd.Flags().BoolVar(&buyReset, "reset", false, "clear the stored token and start a new account")
	buyCmd.Flags().BoolVar(&buyJSON, "json", false, "output as JSON")
}
