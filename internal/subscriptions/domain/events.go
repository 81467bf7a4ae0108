package domain

// Routing keys for billing events.
const (
	RoutingKeyProductsLoaded  = "billing.products.loaded"
	RoutingKeyPurchaseUpdated = "billing.purchase.updated"
	RoutingKeyPurchaseFailed  = "billing.purchase.failed"
)

// ProductsLoaded is published when the product catalog has been fetched.
type ProductsLoaded struct {
	Catalog Catalog `json:"catalog"`
}

// PurchaseUpdated is published when billing reports a purchase state change.
type PurchaseUpdated struct {
	Purchase PurchaseResult `json:"purchase"`
}

// PurchaseFailed is published when a purchase could not be completed.
type PurchaseFailed struct {
	ProductID  string `json:"product_id"`
	OfferToken string `json:"offer_token,omitempty"`
	Reason     string `json:"reason"`
}
