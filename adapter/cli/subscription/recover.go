package subscription

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

var recoverCmd = &cobra.Command{
	Use:     "recover",
	Aliases: []string{"restore"},
	Short:   "Restore credentials for an existing purchase",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := svc.Load(ctx); err != nil {
			flushMessages(cmd.ErrOrStderr(), svc)
			return err
		}

		err = svc.Recover(ctx)
		flushMessages(cmd.ErrOrStderr(), svc)
		switch {
		case errors.Is(err, domain.ErrNoPurchase):
			return nil
		case err != nil:
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Subscription recovered.")
		return writeView(cmd.OutOrStdout(), svc.View(), false)
	},
}
