package domain

// PartialUpdate carries only the fields that changed. Nil fields are absent.
type PartialUpdate struct {
	HasSubscription *Status
	Details         *ProductInfo
	// Offers overrides per plan key; a nil map leaves offers untouched.
	Offers map[PlanKey]OfferInfo
	// ClearOffers drops previously known offers before applying Offers.
	ClearOffers bool
}

// Empty reports whether the update carries no field at all.
func (u PartialUpdate) Empty() bool {
	return u.HasSubscription == nil && u.Details == nil && len(u.Offers) == 0 && !u.ClearOffers
}

// SubscriptionUpdate sets the tri-state flag only.
func SubscriptionUpdate(status Status) PartialUpdate {
	return PartialUpdate{HasSubscription: &status}
}

// CatalogUpdate replaces product details and offers with the loaded catalog.
func CatalogUpdate(catalog Catalog) PartialUpdate {
	product := catalog.Product
	offers := make(map[PlanKey]OfferInfo, len(catalog.Offers))
	for _, offer := range catalog.Offers {
		if !offer.Plan.Valid() {
			continue
		}
		offers[offer.Plan] = offer
	}
	return PartialUpdate{
		Details:     &product,
		Offers:      offers,
		ClearOffers: true,
	}
}
