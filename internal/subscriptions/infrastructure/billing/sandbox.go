package billing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/security"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

// DefaultCatalog is the catalog the sandbox serves when no file is given.
func DefaultCatalog() domain.Catalog {
	return domain.Catalog{
		Product: domain.ProductInfo{
			ID:          "privacy_pro",
			Name:        "Privacy Pro",
			Description: "VPN, personal information removal and identity theft restoration",
		},
		Offers: []domain.OfferInfo{
			{Plan: domain.PlanYearly, PriceText: "$99.99", OfferToken: "sandbox-yearly", BillingPeriod: "P1Y"},
			{Plan: domain.PlanMonthly, PriceText: "$9.99", OfferToken: "sandbox-monthly", BillingPeriod: "P1M"},
			{Plan: domain.PlanUK, PriceText: "£7.99", OfferToken: "sandbox-uk", BillingPeriod: "P1M"},
			{Plan: domain.PlanNetherlands, PriceText: "€8.99", OfferToken: "sandbox-nl", BillingPeriod: "P1M"},
		},
	}
}

// Fixture is the sandbox's file format: a catalog plus purchases that
// already exist for the account.
type Fixture struct {
	domain.Catalog
	Purchases []domain.PurchaseResult `json:"purchases,omitempty"`
}

// LoadFixture reads a sandbox fixture from a JSON file.
func LoadFixture(path string) (Fixture, error) {
	data, err := security.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read catalog: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode catalog: %w", err)
	}
	if fixture.Product.ID == "" {
		return Fixture{}, fmt.Errorf("catalog %s has no product id", path)
	}
	for _, p := range fixture.Purchases {
		if _, err := domain.ParsePurchaseState(string(p.State)); err != nil {
			return Fixture{}, fmt.Errorf("catalog %s: %w", path, err)
		}
	}
	return fixture, nil
}

// Sandbox is an in-memory billing collaborator. Purchases always succeed
// unless the offer token is unknown.
type Sandbox struct {
	catalog   domain.Catalog
	publisher eventbus.Publisher
	logger    *slog.Logger

	mu        sync.Mutex
	purchases []domain.PurchaseResult
}

// NewSandbox creates a Sandbox serving the fixture.
func NewSandbox(fixture Fixture, publisher eventbus.Publisher, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &Sandbox{
		catalog:   fixture.Catalog,
		purchases: slices.Clone(fixture.Purchases),
		publisher: publisher,
		logger:    logger,
	}
}

// Products implements domain.Billing.
func (s *Sandbox) Products(ctx context.Context, productID string) (domain.Catalog, error) {
	if productID != "" && productID != s.catalog.Product.ID {
		return domain.Catalog{}, fmt.Errorf("unknown product %q", productID)
	}
	catalog := domain.Catalog{Product: s.catalog.Product, Offers: slices.Clone(s.catalog.Offers)}
	if err := eventbus.PublishEvent(ctx, s.publisher, domain.RoutingKeyProductsLoaded, EventSource, domain.ProductsLoaded{Catalog: catalog}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish products loaded", "error", err)
	}
	return catalog, nil
}

// Purchases implements domain.Billing.
func (s *Sandbox) Purchases(context.Context) ([]domain.PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.purchases), nil
}

// Buy implements domain.Billing.
func (s *Sandbox) Buy(ctx context.Context, product domain.ProductInfo, offerToken string) (domain.PurchaseResult, error) {
	known := slices.ContainsFunc(s.catalog.Offers, func(o domain.OfferInfo) bool { return o.OfferToken == offerToken })
	if product.ID != s.catalog.Product.ID || !known {
		failed := domain.PurchaseFailed{ProductID: product.ID, OfferToken: offerToken, Reason: "offer not found"}
		if err := eventbus.PublishEvent(ctx, s.publisher, domain.RoutingKeyPurchaseFailed, EventSource, failed); err != nil {
			return domain.PurchaseResult{}, err
		}
		return domain.PurchaseResult{}, fmt.Errorf("%w: offer %q not found", domain.ErrPurchaseFailed, offerToken)
	}

	result := domain.PurchaseResult{
		PurchaseToken: uuid.NewString(),
		ProductID:     product.ID,
		OfferToken:    offerToken,
		State:         domain.PurchasePurchased,
	}
	s.mu.Lock()
	s.purchases = append(s.purchases, result)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "sandbox purchase completed", "product_id", product.ID, "offer_token", offerToken)
	if err := eventbus.PublishEvent(ctx, s.publisher, domain.RoutingKeyPurchaseUpdated, EventSource, domain.PurchaseUpdated{Purchase: result}); err != nil {
		return result, fmt.Errorf("publish purchase: %w", err)
	}
	return result, nil
}

// Cancel marks every purchase of the product as canceled and publishes
// the change.
func (s *Sandbox) Cancel(ctx context.Context, productID string) error {
	s.mu.Lock()
	var changed []domain.PurchaseResult
	for i := range s.purchases {
		if s.purchases[i].ProductID == productID && s.purchases[i].State != domain.PurchaseCanceled {
			s.purchases[i].State = domain.PurchaseCanceled
			changed = append(changed, s.purchases[i])
		}
	}
	s.mu.Unlock()

	for _, p := range changed {
		if err := eventbus.PublishEvent(ctx, s.publisher, domain.RoutingKeyPurchaseUpdated, EventSource, domain.PurchaseUpdated{Purchase: p}); err != nil {
			return fmt.Errorf("publish cancellation: %w", err)
		}
	}
	return nil
}

// Authenticate implements domain.Authenticator by minting a random token
// for a known purchase.
func (s *Sandbox) Authenticate(_ context.Context, purchaseToken string) (string, error) {
	s.mu.Lock()
	found := slices.ContainsFunc(s.purchases, func(p domain.PurchaseResult) bool { return p.PurchaseToken == purchaseToken })
	s.mu.Unlock()
	if !found {
		return "", fmt.Errorf("unknown purchase token")
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
