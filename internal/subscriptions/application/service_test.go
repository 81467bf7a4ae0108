package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBilling struct {
	mu           sync.Mutex
	catalog      domain.Catalog
	productsErr  error
	purchases    []domain.PurchaseResult
	purchasesErr error
	buyErr       error
	buyCalls     []string
}

func (f *fakeBilling) Products(ctx context.Context, productID string) (domain.Catalog, error) {
	return f.catalog, f.productsErr
}

func (f *fakeBilling) Purchases(ctx context.Context) ([]domain.PurchaseResult, error) {
	return f.purchases, f.purchasesErr
}

func (f *fakeBilling) Buy(ctx context.Context, product domain.ProductInfo, offerToken string) (domain.PurchaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyCalls = append(f.buyCalls, offerToken)
	if f.buyErr != nil {
		return domain.PurchaseResult{}, f.buyErr
	}
	return domain.PurchaseResult{PurchaseToken: "pt-1", ProductID: product.ID, OfferToken: offerToken, State: domain.PurchasePending}, nil
}

type fakeAuth struct {
	token string
	err   error
}

func (f fakeAuth) Authenticate(ctx context.Context, purchaseToken string) (string, error) {
	return f.token, f.err
}

type fakeTokens struct {
	token    *string
	writeErr error
	writes   int
}

func (f *fakeTokens) Token(ctx context.Context) (string, bool) {
	if f.token == nil {
		return "", false
	}
	return *f.token, true
}

func (f *fakeTokens) SetToken(ctx context.Context, token *string) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.token = token
	return nil
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		Product: *privacyPro(),
		Offers: []domain.OfferInfo{
			{Plan: domain.PlanYearly, PriceText: "$99.99", OfferToken: "y1", BillingPeriod: "P1Y"},
			{Plan: domain.PlanMonthly, PriceText: "$9.99", OfferToken: "m1", BillingPeriod: "P1M"},
		},
	}
}

func newTestService(billing *fakeBilling, auth fakeAuth, tokens *fakeTokens) *Service {
	return NewService(NewStateStore(), billing, auth, tokens, ServiceConfig{ProductID: "privacy_pro", CommandQueueSize: 4}, nil, nil)
}

func nextCommand(t *testing.T, svc *Service) domain.Command {
	t.Helper()
	select {
	case cmd := <-svc.Commands():
		return cmd
	default:
		t.Fatal("expected a queued command")
		return nil
	}
}

func TestService_Load(t *testing.T) {
	billing := &fakeBilling{
		catalog:   testCatalog(),
		purchases: []domain.PurchaseResult{{PurchaseToken: "pt", ProductID: "privacy_pro", State: domain.PurchasePurchased}},
	}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})

	require.NoError(t, svc.Load(context.Background()))

	view := svc.View()
	assert.True(t, view.Ready)
	assert.Equal(t, domain.StatusSubscribed, view.Status)
	assert.Equal(t, "You are subscribed to Privacy Pro", view.Headline)
	assert.Len(t, view.Plans, 2)
}

func TestService_LoadFailureQueuesMessage(t *testing.T) {
	billing := &fakeBilling{productsErr: errors.New("unreachable")}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})

	err := svc.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, domain.ErrorMessage{Text: "Could not load subscription plans"}, nextCommand(t, svc))
	assert.Equal(t, domain.StatusUnknown, svc.View().Status)
}

func TestService_BuyRequiresDetails(t *testing.T) {
	billing := &fakeBilling{}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})

	_, err := svc.Buy(context.Background(), domain.PlanYearly, BuyOptions{})

	assert.ErrorIs(t, err, domain.ErrProductDetailsMissing)
	assert.Empty(t, billing.buyCalls)
}

func TestService_BuyRequiresOffer(t *testing.T) {
	billing := &fakeBilling{catalog: testCatalog()}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))

	_, err := svc.Buy(context.Background(), domain.PlanNetherlands, BuyOptions{})

	assert.ErrorIs(t, err, domain.ErrPlanUnavailable)
	assert.Empty(t, billing.buyCalls)
}

func TestService_BuyUsesOfferToken(t *testing.T) {
	billing := &fakeBilling{catalog: testCatalog()}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))
	before := svc.Store().Current()

	result, err := svc.Buy(context.Background(), domain.PlanMonthly, BuyOptions{})

	require.NoError(t, err)
	assert.Equal(t, "m1", result.OfferToken)
	assert.Equal(t, []string{"m1"}, billing.buyCalls)
	// State only changes through purchase events.
	assert.Equal(t, before, svc.Store().Current())
}

func TestService_BuyResetClearsToken(t *testing.T) {
	token := "old-token"
	tokens := &fakeTokens{token: &token}
	billing := &fakeBilling{catalog: testCatalog()}
	svc := newTestService(billing, fakeAuth{}, tokens)
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))

	_, err := svc.Buy(context.Background(), domain.PlanMonthly, BuyOptions{Reset: true})

	require.NoError(t, err)
	assert.False(t, svc.Authenticated(context.Background()))
	assert.Equal(t, 1, tokens.writes)
}

func TestService_BuyResetWriteFailureAbortsPurchase(t *testing.T) {
	tokens := &fakeTokens{writeErr: errors.New("read-only")}
	billing := &fakeBilling{catalog: testCatalog()}
	svc := newTestService(billing, fakeAuth{}, tokens)
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))

	_, err := svc.Buy(context.Background(), domain.PlanMonthly, BuyOptions{Reset: true})

	require.Error(t, err)
	assert.Empty(t, billing.buyCalls)
	assert.IsType(t, domain.ErrorMessage{}, nextCommand(t, svc))
}

func TestService_BuyCollaboratorErrorBecomesMessage(t *testing.T) {
	billing := &fakeBilling{catalog: testCatalog(), buyErr: errors.New("network down")}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))
	before := svc.Store().Current()

	_, err := svc.Buy(context.Background(), domain.PlanYearly, BuyOptions{})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorMessage{Text: "Purchase failed: network down"}, nextCommand(t, svc))
	assert.Equal(t, before, svc.Store().Current())
}

func TestService_BuyDeclinedIsReportedByEvent(t *testing.T) {
	billing := &fakeBilling{catalog: testCatalog(), buyErr: domain.ErrPurchaseFailed}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})
	svc.Store().ApplyUpdate(domain.CatalogUpdate(billing.catalog))

	_, err := svc.Buy(context.Background(), domain.PlanYearly, BuyOptions{})

	assert.ErrorIs(t, err, domain.ErrPurchaseFailed)
	assert.Empty(t, svc.Commands())
}

func TestService_Recover(t *testing.T) {
	billing := &fakeBilling{
		purchases: []domain.PurchaseResult{{PurchaseToken: "pt", ProductID: "privacy_pro", State: domain.PurchasePurchased}},
	}
	tokens := &fakeTokens{}
	svc := newTestService(billing, fakeAuth{token: "auth-token"}, tokens)
	svc.Store().ApplyUpdate(domain.CatalogUpdate(testCatalog()))

	require.NoError(t, svc.Recover(context.Background()))

	got, ok := tokens.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "auth-token", got)
	assert.Equal(t, domain.StatusSubscribed, svc.Store().Current().HasSubscription())
}

func TestService_RecoverWithoutPurchase(t *testing.T) {
	billing := &fakeBilling{
		purchases: []domain.PurchaseResult{{PurchaseToken: "pt", ProductID: "privacy_pro", State: domain.PurchaseCanceled}},
	}
	svc := newTestService(billing, fakeAuth{}, &fakeTokens{})

	err := svc.Recover(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoPurchase)
	assert.Equal(t, domain.ErrorMessage{Text: MessageNoSubscription}, nextCommand(t, svc))
	assert.Equal(t, domain.StatusNotSubscribed, svc.Store().Current().HasSubscription())
}

func TestService_RecoverTokenWriteFailure(t *testing.T) {
	billing := &fakeBilling{
		purchases: []domain.PurchaseResult{{PurchaseToken: "pt", ProductID: "privacy_pro", State: domain.PurchasePurchased}},
	}
	svc := newTestService(billing, fakeAuth{token: "auth-token"}, &fakeTokens{writeErr: errors.New("locked")})
	svc.Store().ApplyUpdate(domain.CatalogUpdate(testCatalog()))
	before := svc.Store().Current()

	err := svc.Recover(context.Background())

	assert.ErrorIs(t, err, domain.ErrRecoveryFailed)
	assert.Equal(t, before, svc.Store().Current())
	assert.IsType(t, domain.ErrorMessage{}, nextCommand(t, svc))
}

func TestService_RecoverAuthenticationFailure(t *testing.T) {
	billing := &fakeBilling{
		purchases: []domain.PurchaseResult{{PurchaseToken: "pt", ProductID: "privacy_pro", State: domain.PurchasePurchased}},
	}
	tokens := &fakeTokens{}
	svc := newTestService(billing, fakeAuth{err: errors.New("rejected")}, tokens)

	err := svc.Recover(context.Background())

	assert.ErrorIs(t, err, domain.ErrRecoveryFailed)
	assert.Zero(t, tokens.writes)
}

func TestService_Views(t *testing.T) {
	svc := newTestService(&fakeBilling{}, fakeAuth{}, &fakeTokens{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var headlines []string
	for view := range svc.Views(ctx) {
		headlines = append(headlines, view.Headline)
		if len(headlines) == 2 {
			break
		}
		svc.Store().ApplyUpdate(domain.SubscriptionUpdate(domain.StatusNotSubscribed))
	}

	assert.Equal(t, []string{HeadlineChecking, HeadlineNotSubscribed}, headlines)
}
