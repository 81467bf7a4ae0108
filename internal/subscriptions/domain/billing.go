package domain

import "context"

// Billing is the purchase collaborator. It reports outcomes through
// purchase events; callers never mutate subscription state from its returns alone.
type Billing interface {
	// Products loads the product details and offers for a product family.
	Products(ctx context.Context, productID string) (Catalog, error)

	// Purchases lists existing purchases for the current account.
	Purchases(ctx context.Context) ([]PurchaseResult, error)

	// Buy launches a purchase of the given offer.
	Buy(ctx context.Context, product ProductInfo, offerToken string) (PurchaseResult, error)
}

// Authenticator exchanges an active purchase for an authentication token.
type Authenticator interface {
	Authenticate(ctx context.Context, purchaseToken string) (string, error)
}
