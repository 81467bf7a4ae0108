package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

// Cmd is the subscription command group.
var Cmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Inspect and purchase the subscription",
	Long:    `Show the subscription state, purchase a plan or restore an existing purchase.`,
}

var errNotInitialized = errors.New("subscription service not initialized")

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(watchCmd)
	Cmd.AddCommand(plansCmd)
	Cmd.AddCommand(buyCmd)
	Cmd.AddCommand(recoverCmd)
	Cmd.AddCommand(cancelCmd)
}

func service() (*subApp.Service, error) {
	app := cli.GetApp()
	if app == nil || app.Service == nil {
		return nil, errNotInitialized
	}
	return app.Service, nil
}

// flushMessages writes every queued presentation message without blocking.
func flushMessages(w io.Writer, svc *subApp.Service) {
	for {
		select {
		case c := <-svc.Commands():
			writeCommand(w, c)
		default:
			return
		}
	}
}

func writeCommand(w io.Writer, c domain.Command) {
	if msg, ok := c.(domain.ErrorMessage); ok {
		fmt.Fprintf(w, "! %s\n", msg.Text)
	}
}

func writeView(w io.Writer, view subApp.View, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(view)
	}

	fmt.Fprintln(w, view.Headline)
	if !view.Ready {
		return nil
	}
	if view.Description != "" {
		fmt.Fprintf(w, "%s: %s\n", view.ProductName, view.Description)
	}
	if view.Status == domain.StatusSubscribed {
		return nil
	}
	if len(view.Plans) > 0 {
		fmt.Fprintln(w, "Plans:")
		writePlans(w, view.Plans)
	}
	if view.Reset != nil {
		fmt.Fprintf(w, "Start a new account: buy %s --reset (%s)\n", view.Reset.Plan, view.Reset.PriceText)
	}
	return nil
}

func writePlans(w io.Writer, plans []subApp.PlanAction) {
	for _, plan := range plans {
		line := fmt.Sprintf("  %-12s %s", plan.Plan, plan.PriceText)
		if plan.BillingPeriod != "" {
			line += " / " + plan.BillingPeriod
		}
		fmt.Fprintln(w, line)
	}
}
