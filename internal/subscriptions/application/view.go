package application

import "github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"

// Headlines shown for each subscription status.
const (
	HeadlineChecking      = "Checking subscription status..."
	HeadlineNotSubscribed = "You are not subscribed yet"
	headlineSubscribed    = "You are subscribed to "
)

// PlanAction is a purchasable affordance for one plan.
type PlanAction struct {
	Plan          domain.PlanKey `json:"plan"`
	PriceText     string         `json:"price_text"`
	OfferToken    string         `json:"offer_token"`
	BillingPeriod string         `json:"billing_period,omitempty"`
}

// View is the presentation projection of a snapshot.
type View struct {
	Version  uint64        `json:"version"`
	Status   domain.Status `json:"status"`
	Headline string        `json:"headline"`
	// Ready is false until product details are known. No plan actions are
	// offered before that.
	Ready       bool         `json:"ready"`
	ProductName string       `json:"product_name,omitempty"`
	Description string       `json:"description,omitempty"`
	Plans       []PlanAction `json:"plans,omitempty"`
	Reset       *PlanAction  `json:"reset,omitempty"`
}

// Render projects a snapshot into a View. Unknown status renders as a
// checking headline rather than as not subscribed.
func Render(snapshot domain.Snapshot) View {
	view := View{
		Version: snapshot.Version(),
		Status:  snapshot.HasSubscription(),
	}

	details, ok := snapshot.Details()
	switch {
	case view.Status == domain.StatusSubscribed && ok:
		view.Headline = headlineSubscribed + details.Name
	case view.Status == domain.StatusNotSubscribed:
		view.Headline = HeadlineNotSubscribed
	default:
		view.Headline = HeadlineChecking
	}

	if !ok {
		return view
	}

	view.Ready = true
	view.ProductName = details.Name
	view.Description = details.Description
	for _, plan := range domain.AllPlans() {
		offer, found := snapshot.Offer(plan)
		if !found {
			continue
		}
		view.Plans = append(view.Plans, PlanAction{
			Plan:          plan,
			PriceText:     offer.PriceText,
			OfferToken:    offer.OfferToken,
			BillingPeriod: offer.BillingPeriod,
		})
		if plan == domain.PlanMonthly {
			reset := view.Plans[len(view.Plans)-1]
			view.Reset = &reset
		}
	}
	return view
}
