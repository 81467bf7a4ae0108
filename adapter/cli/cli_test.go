package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

func TestHealthCmd_NoApp(t *testing.T) {
	SetApp(nil)

	healthCmd.SetContext(context.Background())
	err := healthCmd.RunE(healthCmd, nil)

	assert.ErrorContains(t, err, "not initialized")
}

func TestHealthCmd(t *testing.T) {
	registry := observability.NewHealthRegistry()
	registry.Register("token_store", func(context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "encryption unavailable"}
	})
	SetApp(&App{Health: registry})
	defer SetApp(nil)

	t.Run("text", func(t *testing.T) {
		healthJSON = false
		var out strings.Builder
		healthCmd.SetContext(context.Background())
		healthCmd.SetOut(&out)

		require.NoError(t, healthCmd.RunE(healthCmd, nil))
		assert.Contains(t, out.String(), "degraded")
		assert.Contains(t, out.String(), "token_store: degraded (encryption unavailable)")
	})

	t.Run("json", func(t *testing.T) {
		healthJSON = true
		defer func() { healthJSON = false }()
		var out strings.Builder
		healthCmd.SetContext(context.Background())
		healthCmd.SetOut(&out)

		require.NoError(t, healthCmd.RunE(healthCmd, nil))
		var health observability.OverallHealth
		require.NoError(t, json.Unmarshal([]byte(out.String()), &health))
		assert.Equal(t, observability.HealthStatusDegraded, health.Status)
	})
}

func TestHealthCmd_UnhealthyFails(t *testing.T) {
	registry := observability.NewHealthRegistry()
	registry.Register("redis", func(context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy}
	})
	SetApp(&App{Health: registry})
	defer SetApp(nil)
	healthJSON = false

	var out strings.Builder
	healthCmd.SetContext(context.Background())
	healthCmd.SetOut(&out)

	assert.Error(t, healthCmd.RunE(healthCmd, nil))
}

func TestVersionCmd(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)

	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "subscriptions "+Version)
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))

	rootCmd.SetContext(context.Background())
	rootCmd.PersistentPreRun(rootCmd, nil)

	id := CorrelationID(rootCmd.Context())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, observability.CorrelationIDFromContext(rootCmd.Context()))
}
