package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// MessageNoSubscription is shown when recovery finds no active purchase.
const MessageNoSubscription = "No subscription found"

// TokenStore is the credential store the service reads and writes.
type TokenStore interface {
	Token(ctx context.Context) (string, bool)
	SetToken(ctx context.Context, token *string) error
}

// BuyOptions modify a purchase.
type BuyOptions struct {
	// Reset clears the stored token before purchasing.
	Reset bool
}

// ServiceConfig configures the subscription service.
type ServiceConfig struct {
	ProductID        string
	CommandQueueSize int
}

// Service issues subscription commands and projects state for presentation.
type Service struct {
	store     *StateStore
	billing   domain.Billing
	auth      domain.Authenticator
	tokens    TokenStore
	commands  *CommandQueue
	productID string
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewService creates a subscription service.
func NewService(
	store *StateStore,
	billing domain.Billing,
	auth domain.Authenticator,
	tokens TokenStore,
	cfg ServiceConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Service{
		store:     store,
		billing:   billing,
		auth:      auth,
		tokens:    tokens,
		commands:  NewCommandQueue(cfg.CommandQueueSize, logger, metrics),
		productID: cfg.ProductID,
		logger:    logger,
		metrics:   metrics,
	}
}

// Store returns the underlying state store.
func (s *Service) Store() *StateStore {
	return s.store
}

// ProductID returns the subscription product this service manages.
func (s *Service) ProductID() string {
	return s.productID
}

// Commands returns the presentation command channel.
func (s *Service) Commands() <-chan domain.Command {
	return s.commands.C()
}

// Notify queues an error message for the presentation layer.
func (s *Service) Notify(text string) {
	s.commands.Send(domain.ErrorMessage{Text: text})
}

// View renders the current snapshot.
func (s *Service) View() View {
	return Render(s.store.Current())
}

// Views yields a rendered view for the current snapshot and each later one.
func (s *Service) Views(ctx context.Context) iter.Seq[View] {
	return func(yield func(View) bool) {
		for snapshot := range s.store.Observe(ctx) {
			if !yield(Render(snapshot)) {
				return
			}
		}
	}
}

// Load fetches the catalog and existing purchases and applies them.
func (s *Service) Load(ctx context.Context) error {
	return observability.TimeOperation(ctx, s.logger, s.metrics, "subscription.load", func() error {
		catalog, err := s.billing.Products(ctx, s.productID)
		if err != nil {
			s.Notify("Could not load subscription plans")
			return fmt.Errorf("load products: %w", err)
		}
		s.store.ApplyUpdate(domain.CatalogUpdate(catalog))

		purchases, err := s.billing.Purchases(ctx)
		if err != nil {
			s.Notify("Could not load purchases")
			return fmt.Errorf("load purchases: %w", err)
		}
		_, active := domain.ActivePurchase(purchases, s.productID)
		s.store.ApplyUpdate(domain.SubscriptionUpdate(domain.StatusFromBool(active)))
		return nil
	})
}

// Buy launches a purchase of the given plan. The resulting subscription
// state arrives through purchase events, not from this call.
func (s *Service) Buy(ctx context.Context, plan domain.PlanKey, opts BuyOptions) (domain.PurchaseResult, error) {
	return observability.TimeOperationResult(ctx, s.logger, s.metrics, "subscription.buy", func() (domain.PurchaseResult, error) {
		snapshot := s.store.Current()
		details, ok := snapshot.Details()
		if !ok {
			return domain.PurchaseResult{}, domain.ErrProductDetailsMissing
		}
		offer, ok := snapshot.Offer(plan)
		if !ok {
			return domain.PurchaseResult{}, fmt.Errorf("%w: %s", domain.ErrPlanUnavailable, plan)
		}

		if opts.Reset {
			if err := s.tokens.SetToken(ctx, nil); err != nil {
				s.Notify("Could not reset account")
				return domain.PurchaseResult{}, fmt.Errorf("reset token: %w", err)
			}
			s.logger.InfoContext(ctx, "cleared token before purchase", "plan", plan)
		}

		result, err := s.billing.Buy(ctx, details, offer.OfferToken)
		if err != nil {
			// Failures reported by billing reach the presentation layer
			// through the purchase failed event.
			if !errors.Is(err, domain.ErrPurchaseFailed) {
				s.Notify("Purchase failed: " + err.Error())
			}
			return domain.PurchaseResult{}, fmt.Errorf("buy %s: %w", plan, err)
		}
		s.logger.InfoContext(ctx, "purchase launched", "plan", plan, "state", result.State)
		return result, nil
	})
}

// Recover looks up an existing purchase and restores credentials for it.
func (s *Service) Recover(ctx context.Context) error {
	return observability.TimeOperation(ctx, s.logger, s.metrics, "subscription.recover", func() error {
		purchases, err := s.billing.Purchases(ctx)
		if err != nil {
			s.Notify("Could not load purchases")
			return fmt.Errorf("%w: %w", domain.ErrRecoveryFailed, err)
		}

		purchase, ok := domain.ActivePurchase(purchases, s.productID)
		if !ok {
			s.store.ApplyUpdate(domain.SubscriptionUpdate(domain.StatusNotSubscribed))
			s.Notify(MessageNoSubscription)
			return domain.ErrNoPurchase
		}

		token, err := s.auth.Authenticate(ctx, purchase.PurchaseToken)
		if err != nil {
			s.Notify("Could not recover subscription")
			return fmt.Errorf("%w: authenticate: %w", domain.ErrRecoveryFailed, err)
		}
		if err := s.tokens.SetToken(ctx, &token); err != nil {
			s.Notify("Could not store credentials")
			return fmt.Errorf("%w: %w", domain.ErrRecoveryFailed, err)
		}

		s.store.ApplyUpdate(domain.SubscriptionUpdate(domain.StatusSubscribed))
		s.logger.InfoContext(ctx, "subscription recovered", "product_id", purchase.ProductID)
		return nil
	})
}

// Authenticated reports whether a token is currently stored.
func (s *Service) Authenticated(ctx context.Context) bool {
	_, ok := s.tokens.Token(ctx)
	return ok
}
