package subscribers

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

// Notifier queues a display message for the presentation layer.
type Notifier interface {
	Notify(text string)
}

// BillingSubscriber turns billing events into state updates and error messages.
type BillingSubscriber struct {
	store     *application.StateStore
	notifier  Notifier
	productID string
	logger    *slog.Logger
}

// NewBillingSubscriber creates a subscriber. Purchases for products other
// than productID are ignored unless productID is empty.
func NewBillingSubscriber(store *application.StateStore, notifier Notifier, productID string, logger *slog.Logger) *BillingSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingSubscriber{
		store:     store,
		notifier:  notifier,
		productID: productID,
		logger:    logger,
	}
}

// EventTypes returns the routing keys this subscriber handles.
func (s *BillingSubscriber) EventTypes() []string {
	return []string{
		domain.RoutingKeyProductsLoaded,
		domain.RoutingKeyPurchaseUpdated,
		domain.RoutingKeyPurchaseFailed,
	}
}

// Handle applies the event.
func (s *BillingSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	switch event.RoutingKey {
	case domain.RoutingKeyProductsLoaded:
		return s.handleProductsLoaded(ctx, event)
	case domain.RoutingKeyPurchaseUpdated:
		return s.handlePurchaseUpdated(ctx, event)
	case domain.RoutingKeyPurchaseFailed:
		return s.handlePurchaseFailed(ctx, event)
	default:
		s.logger.WarnContext(ctx, "unhandled event type", "routing_key", event.RoutingKey)
		return nil
	}
}

func (s *BillingSubscriber) handleProductsLoaded(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload domain.ProductsLoaded
	if err := event.Decode(&payload); err != nil {
		return err
	}
	if s.productID != "" && payload.Catalog.Product.ID != s.productID {
		s.logger.DebugContext(ctx, "ignoring catalog for other product", "product_id", payload.Catalog.Product.ID)
		return nil
	}

	snapshot := s.store.ApplyUpdate(domain.CatalogUpdate(payload.Catalog))
	s.logger.DebugContext(ctx, "applied product catalog",
		"offers", len(payload.Catalog.Offers),
		"version", snapshot.Version(),
	)
	return nil
}

func (s *BillingSubscriber) handlePurchaseUpdated(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload domain.PurchaseUpdated
	if err := event.Decode(&payload); err != nil {
		return err
	}
	purchase := payload.Purchase
	if s.productID != "" && purchase.ProductID != s.productID {
		s.logger.DebugContext(ctx, "ignoring purchase for other product", "product_id", purchase.ProductID)
		return nil
	}

	state, err := domain.ParsePurchaseState(string(purchase.State))
	if err != nil {
		s.logger.WarnContext(ctx, "ignoring purchase with unknown state", "state", purchase.State)
		return nil
	}

	switch state {
	case domain.PurchasePurchased:
		s.store.ApplyUpdate(domain.SubscriptionUpdate(domain.StatusSubscribed))
	case domain.PurchaseCanceled:
		s.store.ApplyUpdate(domain.SubscriptionUpdate(domain.StatusNotSubscribed))
	case domain.PurchasePending:
		// Pending purchases are confirmed by a later event.
	}
	s.logger.InfoContext(ctx, "purchase updated", "state", state, "product_id", purchase.ProductID)
	return nil
}

func (s *BillingSubscriber) handlePurchaseFailed(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload domain.PurchaseFailed
	if err := event.Decode(&payload); err != nil {
		return err
	}

	text := "Purchase failed"
	if payload.Reason != "" {
		text += ": " + payload.Reason
	}
	s.notifier.Notify(text)
	s.logger.WarnContext(ctx, "purchase failed", "product_id", payload.ProductID, "reason", payload.Reason)
	return nil
}
