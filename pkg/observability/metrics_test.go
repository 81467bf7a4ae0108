package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}

	m.Counter("test", 1)
	m.Gauge("test", 1.0)
	m.Timing("test", time.Second)
}

func TestInMemoryMetrics(t *testing.T) {
	t.Run("Counter", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter(MetricUpdatesApplied, 1)
		m.Counter(MetricUpdatesApplied, 2)

		assert.Equal(t, int64(3), m.GetCounter(MetricUpdatesApplied))
	})

	t.Run("Counter tags are order insensitive", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter("requests", 1, T("method", "GET"), T("path", "/purchases"))
		m.Counter("requests", 1, T("path", "/purchases"), T("method", "GET"))
		m.Counter("requests", 1, T("method", "POST"))

		assert.Equal(t, int64(2), m.GetCounter("requests", T("method", "GET"), T("path", "/purchases")))
		assert.Equal(t, int64(1), m.GetCounter("requests", T("method", "POST")))
		assert.Len(t, m.Counters(), 2)
	})

	t.Run("Gauge", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Gauge(MetricSubscribers, 2)
		m.Gauge(MetricSubscribers, 1)

		assert.Equal(t, 1.0, m.GetGauge(MetricSubscribers))
	})

	t.Run("Timing", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Timing("commit", 100*time.Millisecond)
		m.Timing("commit", 200*time.Millisecond)

		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, m.GetTimings("commit"))
	})

	t.Run("Reset", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter("test", 1)
		m.Gauge("test", 1.0)
		m.Timing("test", time.Second)

		m.Reset()

		assert.Zero(t, m.GetCounter("test"))
		assert.Zero(t, m.GetGauge("test"))
		assert.Empty(t, m.GetTimings("test"))
	})
}

func TestMetricKey(t *testing.T) {
	assert.Equal(t, "requests", metricKey("requests", nil))
	assert.Equal(t, "requests:method=GET", metricKey("requests", []Tag{T("method", "GET")}))
	assert.Equal(t, "requests:a=1:b=2", metricKey("requests", []Tag{T("b", "2"), T("a", "1")}))
}

func TestTimeOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := NewInMemoryMetrics()

	err := TimeOperation(context.Background(), logger, m, "token.set", func() error { return nil })
	require.NoError(t, err)

	failure := errors.New("disk full")
	err = TimeOperation(context.Background(), logger, m, "token.set", func() error { return failure })
	assert.ErrorIs(t, err, failure)

	tag := T(OperationKey, "token.set")
	assert.Equal(t, int64(2), m.GetCounter(MetricOperationTotal, tag))
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationErrors, tag))
	assert.Len(t, m.GetTimings(MetricOperationDuration, tag), 2)
	assert.Contains(t, buf.String(), "operation failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestTimeOperationResult(t *testing.T) {
	m := NewInMemoryMetrics()

	got, err := TimeOperationResult(context.Background(), nil, m, "billing.products", func() (string, error) {
		return "catalog", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "catalog", got)
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationTotal, T(OperationKey, "billing.products")))
}

func TestHealthRegistry(t *testing.T) {
	r := NewHealthRegistry()
	r.Register("store", PingChecker("sqlite", HealthStatusUnhealthy, func(context.Context) error { return nil }))

	health := r.Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)

	r.Register("events", PingChecker("rabbitmq", HealthStatusDegraded, func(context.Context) error {
		return errors.New("connection refused")
	}))
	health = r.Check(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Contains(t, health.Checks["events"].Message, "connection refused")

	r.Register("store", PingChecker("sqlite", HealthStatusUnhealthy, func(context.Context) error {
		return errors.New("locked")
	}))
	assert.Equal(t, HealthStatusUnhealthy, r.Check(context.Background()).Status)
}
