package subscription

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the sandbox subscription",
	Long:  `Cancel every sandbox purchase of the product. Only available in sandbox billing mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}
		app := cli.GetApp()
		if app.Sandbox == nil {
			return errors.New("cancel is only available with sandbox billing")
		}

		ctx := cmd.Context()
		if err := svc.Load(ctx); err != nil {
			flushMessages(cmd.ErrOrStderr(), svc)
			return err
		}
		if err := app.Sandbox.Cancel(ctx, svc.ProductID()); err != nil {
			return err
		}
		flushMessages(cmd.ErrOrStderr(), svc)

		fmt.Fprintln(cmd.OutOrStdout(), "Subscription canceled.")
		return writeView(cmd.OutOrStdout(), svc.View(), false)
	},
}
