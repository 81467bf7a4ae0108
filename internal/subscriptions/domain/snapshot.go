package domain

import (
	"encoding/json"
	"maps"
)

// Snapshot is an immutable, fully merged view of subscription state.
// Values are never mutated after construction; merges return a new Snapshot.
type Snapshot struct {
	version         uint64
	hasSubscription Status
	details         *ProductInfo
	offers          map[PlanKey]OfferInfo
}

// NewSnapshot builds a snapshot from its parts. The offers map is copied.
func NewSnapshot(status Status, details *ProductInfo, offers map[PlanKey]OfferInfo) Snapshot {
	s := Snapshot{hasSubscription: status}
	if details != nil {
		d := *details
		s.details = &d
	}
	if len(offers) > 0 {
		s.offers = maps.Clone(offers)
	}
	return s
}

// Version is the commit counter assigned by the store that published the snapshot.
func (s Snapshot) Version() uint64 {
	return s.version
}

// HasSubscription returns the tri-state subscription flag.
func (s Snapshot) HasSubscription() Status {
	return s.hasSubscription
}

// Details returns the product details, if loaded.
func (s Snapshot) Details() (ProductInfo, bool) {
	if s.details == nil {
		return ProductInfo{}, false
	}
	return *s.details, true
}

// Offer returns the offer for a plan, if loaded.
func (s Snapshot) Offer(plan PlanKey) (OfferInfo, bool) {
	offer, ok := s.offers[plan]
	return offer, ok
}

// Offers returns a copy of the offers keyed by plan.
func (s Snapshot) Offers() map[PlanKey]OfferInfo {
	return maps.Clone(s.offers)
}

// Validate reports whether the snapshot may be published.
func (s Snapshot) Validate() error {
	if s.hasSubscription == StatusSubscribed && s.details == nil {
		return ErrInvalidStateTransition
	}
	return nil
}

// Merge applies a partial update with field-wise override: fields present in
// the update replace the current ones, absent fields are left untouched.
// The version is carried over unchanged.
func (s Snapshot) Merge(u PartialUpdate) Snapshot {
	next := Snapshot{
		version:         s.version,
		hasSubscription: s.hasSubscription,
		details:         s.details,
		offers:          s.offers,
	}
	if u.HasSubscription != nil {
		next.hasSubscription = *u.HasSubscription
	}
	if u.Details != nil {
		d := *u.Details
		next.details = &d
	}
	if u.ClearOffers || len(u.Offers) > 0 {
		offers := make(map[PlanKey]OfferInfo, len(s.offers)+len(u.Offers))
		if !u.ClearOffers {
			maps.Copy(offers, s.offers)
		}
		for plan, offer := range u.Offers {
			offer.Plan = plan
			offers[plan] = offer
		}
		next.offers = offers
	}
	return next
}

// WithVersion returns a copy of the snapshot stamped with the given version.
func (s Snapshot) WithVersion(version uint64) Snapshot {
	s.version = version
	return s
}

// Equal reports whether two snapshots carry the same state, ignoring version.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.hasSubscription != other.hasSubscription {
		return false
	}
	if (s.details == nil) != (other.details == nil) {
		return false
	}
	if s.details != nil && *s.details != *other.details {
		return false
	}
	return maps.Equal(s.offers, other.offers)
}

type snapshotJSON struct {
	Version         uint64                `json:"version"`
	HasSubscription Status                `json:"has_subscription"`
	Details         *ProductInfo          `json:"subscription_details,omitempty"`
	Offers          map[PlanKey]OfferInfo `json:"offers,omitempty"`
}

// MarshalJSON renders the snapshot for CLI and MCP output.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Version:         s.version,
		HasSubscription: s.hasSubscription,
		Details:         s.details,
		Offers:          s.offers,
	})
}
