package domain

import "errors"

var (
	// ErrUnknownPlan indicates a plan name that is not part of the product family.
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrProductDetailsMissing indicates a purchase was requested before the catalog loaded.
	ErrProductDetailsMissing = errors.New("subscription product details not loaded")

	// ErrPlanUnavailable indicates the catalog has no offer for the requested plan.
	ErrPlanUnavailable = errors.New("plan is not offered")

	// ErrInvalidStateTransition indicates a snapshot that claims a subscription without product details.
	ErrInvalidStateTransition = errors.New("subscribed state requires product details")

	// ErrPurchaseFailed indicates the billing collaborator rejected or failed a purchase.
	ErrPurchaseFailed = errors.New("purchase failed")

	// ErrNoPurchase indicates recovery found no active purchase.
	ErrNoPurchase = errors.New("no active purchase found")

	// ErrRecoveryFailed indicates an active purchase could not be turned into credentials.
	ErrRecoveryFailed = errors.New("subscription recovery failed")
)
