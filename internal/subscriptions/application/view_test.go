package application

import (
	"testing"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	offers := map[domain.PlanKey]domain.OfferInfo{
		domain.PlanNetherlands: {PriceText: "€8.99", OfferToken: "nl1"},
		domain.PlanMonthly:     {PriceText: "$9.99", OfferToken: "m1"},
		domain.PlanYearly:      {PriceText: "$99.99", OfferToken: "y1"},
	}

	t.Run("unknown without details", func(t *testing.T) {
		view := Render(domain.NewSnapshot(domain.StatusUnknown, nil, offers))

		assert.Equal(t, HeadlineChecking, view.Headline)
		assert.False(t, view.Ready)
		assert.Empty(t, view.Plans)
		assert.Nil(t, view.Reset)
	})

	t.Run("not subscribed without details offers nothing", func(t *testing.T) {
		view := Render(domain.NewSnapshot(domain.StatusNotSubscribed, nil, offers))

		assert.Equal(t, HeadlineNotSubscribed, view.Headline)
		assert.False(t, view.Ready)
		assert.Empty(t, view.ProductName)
		assert.Empty(t, view.Plans)
		assert.Nil(t, view.Reset)
	})

	t.Run("unknown with details lists plans in order", func(t *testing.T) {
		view := Render(domain.NewSnapshot(domain.StatusUnknown, privacyPro(), offers))

		assert.Equal(t, HeadlineChecking, view.Headline)
		assert.True(t, view.Ready)
		require.Len(t, view.Plans, 3)
		assert.Equal(t, domain.PlanYearly, view.Plans[0].Plan)
		assert.Equal(t, domain.PlanMonthly, view.Plans[1].Plan)
		assert.Equal(t, domain.PlanNetherlands, view.Plans[2].Plan)
		require.NotNil(t, view.Reset)
		assert.Equal(t, "m1", view.Reset.OfferToken)
	})

	t.Run("subscribed", func(t *testing.T) {
		view := Render(domain.NewSnapshot(domain.StatusSubscribed, privacyPro(), nil))

		assert.Equal(t, "You are subscribed to Privacy Pro", view.Headline)
		assert.Equal(t, "VPN and identity protection", view.Description)
		assert.Nil(t, view.Reset)
	})
}

func TestCommandQueue_DropsOldestWhenFull(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	q := NewCommandQueue(2, nil, metrics)

	q.Send(domain.ErrorMessage{Text: "one"})
	q.Send(domain.ErrorMessage{Text: "two"})
	q.Send(domain.ErrorMessage{Text: "three"})

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, domain.ErrorMessage{Text: "two"}, <-q.C())
	assert.Equal(t, domain.ErrorMessage{Text: "three"}, <-q.C())
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricCommandsDropped))
}

func TestCommandQueue_DefaultSize(t *testing.T) {
	q := NewCommandQueue(0, nil, nil)
	for i := range DefaultCommandQueueSize + 3 {
		q.Send(domain.ErrorMessage{Text: string(rune('a' + i))})
	}
	assert.Equal(t, DefaultCommandQueueSize, q.Len())
}
