package domain

import "fmt"

// PurchaseState is the lifecycle state reported by billing for a purchase.
type PurchaseState string

const (
	PurchasePurchased PurchaseState = "purchased"
	PurchasePending   PurchaseState = "pending"
	PurchaseCanceled  PurchaseState = "canceled"
)

// ParsePurchaseState validates a purchase state received from billing.
func ParsePurchaseState(raw string) (PurchaseState, error) {
	switch state := PurchaseState(raw); state {
	case PurchasePurchased, PurchasePending, PurchaseCanceled:
		return state, nil
	default:
		return "", fmt.Errorf("unknown purchase state %q", raw)
	}
}

// PurchaseResult is the outcome of a purchase as reported by billing.
type PurchaseResult struct {
	PurchaseToken string        `json:"purchase_token"`
	ProductID     string        `json:"product_id"`
	OfferToken    string        `json:"offer_token,omitempty"`
	State         PurchaseState `json:"state"`
}

// Active reports whether the purchase grants a subscription.
func (p PurchaseResult) Active() bool {
	return p.State == PurchasePurchased
}

// ActivePurchase returns the first active purchase for the product.
// An empty productID matches any product.
func ActivePurchase(purchases []PurchaseResult, productID string) (PurchaseResult, bool) {
	for _, p := range purchases {
		if !p.Active() {
			continue
		}
		if productID == "" || p.ProductID == productID {
			return p, true
		}
	}
	return PurchaseResult{}, false
}
