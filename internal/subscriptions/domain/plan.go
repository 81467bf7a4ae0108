package domain

import (
	"fmt"
	"slices"
	"strings"
)

// PlanKey identifies a purchasable plan variant of the subscription product.
type PlanKey string

const (
	PlanYearly      PlanKey = "yearly"
	PlanMonthly     PlanKey = "monthly"
	PlanUK          PlanKey = "uk"
	PlanNetherlands PlanKey = "netherlands"
)

var allPlans = []PlanKey{PlanYearly, PlanMonthly, PlanUK, PlanNetherlands}

// AllPlans returns every known plan in display order.
func AllPlans() []PlanKey {
	return slices.Clone(allPlans)
}

// Valid reports whether the key is one of the known plans.
func (p PlanKey) Valid() bool {
	return slices.Contains(allPlans, p)
}

// String returns the string representation of the plan key.
func (p PlanKey) String() string {
	return string(p)
}

// ParsePlanKey parses a user-supplied plan name.
func ParsePlanKey(raw string) (PlanKey, error) {
	plan := PlanKey(strings.ToLower(strings.TrimSpace(raw)))
	if !plan.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, raw)
	}
	return plan, nil
}

// OfferInfo is a priced variant of the subscription product.
type OfferInfo struct {
	Plan          PlanKey `json:"plan"`
	PriceText     string  `json:"price_text"`
	OfferToken    string  `json:"offer_token"`
	BillingPeriod string  `json:"billing_period,omitempty"`
}

// ProductInfo describes the subscription product family.
type ProductInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is the product metadata together with its offers, as loaded from billing.
type Catalog struct {
	Product ProductInfo `json:"product"`
	Offers  []OfferInfo `json:"offers"`
}

// OfferFor returns the catalog offer for the given plan.
func (c Catalog) OfferFor(plan PlanKey) (OfferInfo, bool) {
	for _, offer := range c.Offers {
		if offer.Plan == plan {
			return offer, true
		}
	}
	return OfferInfo{}, false
}
