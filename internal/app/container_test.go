package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/crypto"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	subDomain "github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/config"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

func localConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	dir := t.TempDir()
	return &config.Config{
		AppEnv:            "development",
		EncryptionKey:     key,
		StoreName:         "subscriptions.store",
		TokenStoreBackend: backend,
		TokenStoreDir:     dir,
		SQLitePath:        filepath.Join(dir, "store.db"),
		EventBus:          config.EventBusInProcess,
		BillingMode:       config.BillingSandbox,
		BillingProductID:  "privacy_pro",
		CommandQueueSize:  4,
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })
	return c
}

func TestNewContainer_LocalPurchaseFlow(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			c := newTestContainer(t, localConfig(t, backend))

			require.NoError(t, c.Service.Load(ctx))
			view := c.Service.View()
			assert.Equal(t, subApp.HeadlineNotSubscribed, view.Headline)
			require.Len(t, view.Plans, 4)

			_, err := c.Service.Buy(ctx, subDomain.PlanYearly, subApp.BuyOptions{})
			require.NoError(t, err)
			assert.Equal(t, subDomain.StatusSubscribed, c.Store.Current().HasSubscription())

			require.NoError(t, c.Service.Recover(ctx))
			assert.True(t, c.Service.Authenticated(ctx))
			assert.True(t, c.Tokens.CanUseEncryption(ctx))
		})
	}
}

func TestNewContainer_EncryptedFileOnDisk(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, config.BackendFile)
	c := newTestContainer(t, cfg)

	token := "plain-token-value"
	require.NoError(t, c.Tokens.SetToken(ctx, &token))

	data, err := os.ReadFile(filepath.Join(cfg.TokenStoreDir, cfg.StoreName+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), token)
}

func TestNewContainer_NoKeyWithoutFallback(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, config.BackendMemory)
	cfg.EncryptionKey = ""
	c := newTestContainer(t, cfg)

	assert.False(t, c.Tokens.CanUseEncryption(ctx))
	token := "t"
	assert.Error(t, c.Tokens.SetToken(ctx, &token))

	health := c.Health.Check(ctx)
	assert.Equal(t, observability.HealthStatusDegraded, health.Status)
}

func TestNewContainer_NoKeyWithFallback(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, config.BackendMemory)
	cfg.EncryptionKey = ""
	cfg.TokenPlaintextFallback = true
	c := newTestContainer(t, cfg)

	token := "t"
	require.NoError(t, c.Tokens.SetToken(ctx, &token))
	got, ok := c.Tokens.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t", got)
	assert.False(t, c.Tokens.CanUseEncryption(ctx))
}

func TestNewContainer_ObserversSeeEventDrivenUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newTestContainer(t, localConfig(t, config.BackendMemory))

	sub := c.Store.Subscribe(ctx)
	defer sub.Close()
	<-sub.C()

	require.NoError(t, c.Service.Load(ctx))
	_, err := c.Service.Buy(ctx, subDomain.PlanMonthly, subApp.BuyOptions{Reset: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case s := <-sub.C():
			return s.HasSubscription() == subDomain.StatusSubscribed
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestNewContainer_InvalidCatalogPath(t *testing.T) {
	cfg := localConfig(t, config.BackendMemory)
	cfg.BillingCatalogPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewContainer(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewContainer_HealthHealthyLocally(t *testing.T) {
	c := newTestContainer(t, localConfig(t, config.BackendSQLite))

	health := c.Health.Check(context.Background())

	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "database")
	assert.Contains(t, health.Checks, "token_store")
}
