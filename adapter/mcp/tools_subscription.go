package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

var errServiceUnavailable = errors.New("subscription service not initialized")

type statusInput struct {
	Refresh bool `json:"refresh,omitempty"`
}

type buyInput struct {
	Plan  string `json:"plan" jsonschema:"required"`
	Reset bool   `json:"reset,omitempty"`
}

// subscriptionResult is returned by every subscription tool. Messages
// carries the notices the presentation layer would have shown.
type subscriptionResult struct {
	View      subApp.View            `json:"view"`
	Purchase  *domain.PurchaseResult `json:"purchase,omitempty"`
	Recovered *bool                  `json:"recovered,omitempty"`
	Messages  []string               `json:"messages,omitempty"`
}

func registerSubscriptionTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("subscription.status").
		Description("Get the subscription status and purchasable plans").
		Handler(func(ctx context.Context, input statusInput) (subscriptionResult, error) {
			return subscriptionStatus(ctx, app, input)
		})

	srv.Tool("subscription.plans").
		Description("List purchasable plans with prices").
		Handler(func(ctx context.Context, input struct{}) ([]subApp.PlanAction, error) {
			result, err := subscriptionStatus(ctx, app, statusInput{})
			if err != nil {
				return nil, err
			}
			return result.View.Plans, nil
		})

	srv.Tool("subscription.buy").
		Description("Purchase a plan (yearly, monthly, uk, netherlands). reset starts a new account").
		Handler(func(ctx context.Context, input buyInput) (subscriptionResult, error) {
			return subscriptionBuy(ctx, app, input)
		})

	srv.Tool("subscription.recover").
		Description("Restore credentials for an existing purchase").
		Handler(func(ctx context.Context, input struct{}) (subscriptionResult, error) {
			return subscriptionRecover(ctx, app)
		})

	srv.Tool("subscription.cancel").
		Description("Cancel the subscription (sandbox billing only)").
		Handler(func(ctx context.Context, input struct{}) (subscriptionResult, error) {
			return subscriptionCancel(ctx, app)
		})

	return nil
}

func serviceFor(app *cli.App) (*subApp.Service, error) {
	if app == nil || app.Service == nil {
		return nil, errServiceUnavailable
	}
	return app.Service, nil
}

// ensureLoaded loads the catalog unless product details are already known.
func ensureLoaded(ctx context.Context, svc *subApp.Service, force bool) error {
	if !force && svc.View().Ready {
		return nil
	}
	return svc.Load(ctx)
}

func drainMessages(svc *subApp.Service) []string {
	var messages []string
	for {
		select {
		case c := <-svc.Commands():
			if msg, ok := c.(domain.ErrorMessage); ok {
				messages = append(messages, msg.Text)
			}
		default:
			return messages
		}
	}
}

func subscriptionStatus(ctx context.Context, app *cli.App, input statusInput) (subscriptionResult, error) {
	svc, err := serviceFor(app)
	if err != nil {
		return subscriptionResult{}, err
	}
	if err := ensureLoaded(ctx, svc, input.Refresh); err != nil {
		return subscriptionResult{}, err
	}
	return subscriptionResult{View: svc.View(), Messages: drainMessages(svc)}, nil
}

func subscriptionBuy(ctx context.Context, app *cli.App, input buyInput) (subscriptionResult, error) {
	svc, err := serviceFor(app)
	if err != nil {
		return subscriptionResult{}, err
	}
	plan, err := domain.ParsePlanKey(input.Plan)
	if err != nil {
		return subscriptionResult{}, err
	}
	if err := ensureLoaded(ctx, svc, false); err != nil {
		return subscriptionResult{}, err
	}

	purchase, err := svc.Buy(ctx, plan, subApp.BuyOptions{Reset: input.Reset})
	if err != nil {
		return subscriptionResult{}, errors.Join(err, messagesError(drainMessages(svc)))
	}
	return subscriptionResult{
		View:     svc.View(),
		Purchase: &purchase,
		Messages: drainMessages(svc),
	}, nil
}

func subscriptionRecover(ctx context.Context, app *cli.App) (subscriptionResult, error) {
	svc, err := serviceFor(app)
	if err != nil {
		return subscriptionResult{}, err
	}
	if err := ensureLoaded(ctx, svc, false); err != nil {
		return subscriptionResult{}, err
	}

	err = svc.Recover(ctx)
	recovered := err == nil
	if err != nil && !errors.Is(err, domain.ErrNoPurchase) {
		return subscriptionResult{}, err
	}
	return subscriptionResult{
		View:      svc.View(),
		Recovered: &recovered,
		Messages:  drainMessages(svc),
	}, nil
}

func subscriptionCancel(ctx context.Context, app *cli.App) (subscriptionResult, error) {
	svc, err := serviceFor(app)
	if err != nil {
		return subscriptionResult{}, err
	}
	if app.Sandbox == nil {
		return subscriptionResult{}, errors.New("cancel is only available with sandbox billing")
	}
	if err := ensureLoaded(ctx, svc, false); err != nil {
		return subscriptionResult{}, err
	}
	if err := app.Sandbox.Cancel(ctx, svc.ProductID()); err != nil {
		return subscriptionResult{}, err
	}
	return subscriptionResult{View: svc.View(), Messages: drainMessages(svc)}, nil
}

// messagesError turns queued notices into an error, or nil when there are none.
func messagesError(messages []string) error {
	errs := make([]error, 0, len(messages))
	for _, m := range messages {
		errs = append(errs, errors.New(m))
	}
	return errors.Join(errs...)
}
