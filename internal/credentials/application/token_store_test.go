package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/credentials/infrastructure/securestore"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

type fakeStore struct {
	mu        sync.Mutex
	values    map[string]string
	getErr    error
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) Commit(_ context.Context, changes map[string]*string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	for k, v := range changes {
		if v == nil {
			delete(f.values, k)
		} else {
			f.values[k] = *v
		}
	}
	return nil
}

type fakeProvider struct {
	store *fakeStore
	ok    bool
	calls atomic.Int32
}

func (p *fakeProvider) SecureStore(context.Context, string) (domain.SecureStore, bool) {
	p.calls.Add(1)
	if !p.ok {
		return nil, false
	}
	return p.store, true
}

func ptr(s string) *string { return &s }

func TestTokenStore_SetThenGet(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{store: newFakeStore(), ok: true}
	store := NewTokenStore(provider)

	require.NoError(t, store.SetToken(ctx, ptr("abc")))

	token, ok := store.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
	assert.Equal(t, "abc", provider.store.values[domain.KeyToken])
}

func TestTokenStore_ClearRemovesToken(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(&fakeProvider{store: newFakeStore(), ok: true})
	require.NoError(t, store.SetToken(ctx, ptr("abc")))

	require.NoError(t, store.ClearToken(ctx))

	_, ok := store.Token(ctx)
	assert.False(t, ok)
}

func TestTokenStore_AbsentWhenNeverSet(t *testing.T) {
	store := NewTokenStore(&fakeProvider{store: newFakeStore(), ok: true})

	_, ok := store.Token(context.Background())
	assert.False(t, ok)
}

func TestTokenStore_CanUseEncryptionIsCached(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{store: newFakeStore(), ok: true}
	store := NewTokenStore(provider)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			assert.True(t, store.CanUseEncryption(ctx))
		})
	}
	wg.Wait()
	store.Token(ctx)

	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestTokenStore_UnavailableIsNotRetried(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{store: newFakeStore(), ok: false}
	store := NewTokenStore(provider)

	assert.False(t, store.CanUseEncryption(ctx))
	provider.ok = true
	assert.False(t, store.CanUseEncryption(ctx))
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestTokenStore_UnavailableWithoutFallback(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(nil)

	_, ok := store.Token(ctx)
	assert.False(t, ok)

	err := store.SetToken(ctx, ptr("abc"))
	assert.ErrorIs(t, err, domain.ErrTokenWriteFailed)
	assert.ErrorIs(t, err, domain.ErrEncryptionUnavailable)
}

func TestTokenStore_Fallback(t *testing.T) {
	ctx := context.Background()
	fallback := newFakeStore()
	store := NewTokenStore(&fakeProvider{ok: false}, WithFallback(fallback))

	require.NoError(t, store.SetToken(ctx, ptr("plain")))

	assert.False(t, store.CanUseEncryption(ctx))
	token, ok := store.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "plain", token)
	assert.Equal(t, "plain", fallback.values[domain.KeyToken])
}

func TestTokenStore_WriteFailureKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	backing := newFakeStore()
	metrics := observability.NewInMemoryMetrics()
	store := NewTokenStore(&fakeProvider{store: backing, ok: true}, WithMetrics(metrics))
	require.NoError(t, store.SetToken(ctx, ptr("old")))

	cause := errors.New("disk full")
	backing.commitErr = cause
	err := store.SetToken(ctx, ptr("new"))

	assert.ErrorIs(t, err, domain.ErrTokenWriteFailed)
	assert.ErrorIs(t, err, cause)
	token, ok := store.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "old", token)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricTokenWriteErrors))
}

func TestTokenStore_ReadFailureDegradesToAbsent(t *testing.T) {
	ctx := context.Background()
	backing := newFakeStore()
	store := NewTokenStore(&fakeProvider{store: backing, ok: true})
	require.NoError(t, store.SetToken(ctx, ptr("abc")))

	backing.getErr = errors.New("cipher: message authentication failed")

	token, ok := store.Token(ctx)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestTokenStore_StoreName(t *testing.T) {
	var gotName string
	provider := providerFunc(func(_ context.Context, name string) (domain.SecureStore, bool) {
		gotName = name
		return newFakeStore(), true
	})

	NewTokenStore(provider).CanUseEncryption(context.Background())
	assert.Equal(t, domain.DefaultStoreName, gotName)

	NewTokenStore(provider, WithStoreName("custom")).CanUseEncryption(context.Background())
	assert.Equal(t, "custom", gotName)
}

type providerFunc func(ctx context.Context, name string) (domain.SecureStore, bool)

func (f providerFunc) SecureStore(ctx context.Context, name string) (domain.SecureStore, bool) {
	return f(ctx, name)
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(&fakeProvider{store: newFakeStore(), ok: true})
	source := TokenSource(ctx, store)

	_, err := source.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.SetToken(ctx, ptr("fresh")))
	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Equal(t, "Bearer", token.Type())
}

func TestTokenStore_InitIgnoresCallerCancellation(t *testing.T) {
	var initErr error
	provider := providerFunc(func(ctx context.Context, _ string) (domain.SecureStore, bool) {
		initErr = ctx.Err()
		return newFakeStore(), initErr == nil
	})
	store := NewTokenStore(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := store.Token(ctx)
	assert.False(t, ok)

	require.NoError(t, initErr)
	assert.True(t, store.CanUseEncryption(context.Background()))
}

func TestTokenStore_SQLBackendSurvivesCancelledFirstCaller(t *testing.T) {
	conn, err := sqlite.NewConnection(context.Background(), database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: sqlite.MemoryPath,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	store := NewTokenStore(securestore.NewProviderFromKey(securestore.NewSQLBackend(conn), key, nil))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := store.Token(cancelled)
	assert.False(t, ok)

	ctx := context.Background()
	assert.True(t, store.CanUseEncryption(ctx))
	require.NoError(t, store.SetToken(ctx, ptr("abc")))
	token, ok := store.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
