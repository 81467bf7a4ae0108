// Package application implements the authentication token store.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// initTimeout bounds opening the secure store. Initialization is detached
// from the caller's cancellation so the cached answer reflects the platform,
// not the first caller.
const initTimeout = 30 * time.Second

// handle is the store resolved on first use. store is nil when neither an
// encrypted store nor a fallback is available.
type handle struct {
	store     domain.SecureStore
	encrypted bool
}

// TokenStore persists the authentication token in a secure store opened
// lazily on first use. Initialization runs once for the lifetime of the
// TokenStore; a failed attempt is not retried.
type TokenStore struct {
	provider domain.SecureStorageProvider
	name     string
	fallback domain.SecureStore
	logger   *slog.Logger
	metrics  observability.Metrics

	mu     sync.Mutex
	handle atomic.Pointer[handle]
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithStoreName overrides DefaultStoreName.
func WithStoreName(name string) TokenStoreOption {
	return func(s *TokenStore) {
		if name != "" {
			s.name = name
		}
	}
}

// WithFallback sets a plaintext store used when the provider offers no
// encrypted store. CanUseEncryption still reports false.
func WithFallback(store domain.SecureStore) TokenStoreOption {
	return func(s *TokenStore) { s.fallback = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TokenStoreOption {
	return func(s *TokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics observability.Metrics) TokenStoreOption {
	return func(s *TokenStore) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewTokenStore creates a TokenStore. A nil provider behaves like a
// platform without secure storage.
func NewTokenStore(provider domain.SecureStorageProvider, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		provider: provider,
		name:     domain.DefaultStoreName,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenStore) resolve(ctx context.Context) *handle {
	if h := s.handle.Load(); h != nil {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handle.Load(); h != nil {
		return h
	}

	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
	defer cancel()

	h := &handle{}
	if s.provider != nil {
		if store, ok := s.provider.SecureStore(initCtx, s.name); ok {
			h.store = store
			h.encrypted = true
		}
	}
	if h.store == nil {
		if s.fallback != nil {
			h.store = s.fallback
			s.logger.WarnContext(ctx, "secure storage unavailable, using plaintext fallback", "store", s.name)
		} else {
			s.logger.WarnContext(ctx, "secure storage unavailable", "store", s.name)
		}
	}
	s.handle.Store(h)
	return h
}

// CanUseEncryption reports whether tokens are stored encrypted. The first
// call initializes the store; later calls return the cached answer.
func (s *TokenStore) CanUseEncryption(ctx context.Context) bool {
	return s.resolve(ctx).encrypted
}

// Token returns the stored token. It reports absent when no token was
// set, when no store is available, or when the read fails.
func (s *TokenStore) Token(ctx context.Context) (string, bool) {
	h := s.resolve(ctx)
	if h.store == nil {
		return "", false
	}

	value, ok, err := h.store.Get(ctx, domain.KeyToken)
	if err != nil {
		s.metrics.Counter(observability.MetricTokenReads, 1, observability.T("result", "error"))
		s.logger.WarnContext(ctx, "failed to read token", "store", s.name, observability.ErrorKey, err)
		return "", false
	}
	if !ok {
		s.metrics.Counter(observability.MetricTokenReads, 1, observability.T("result", "absent"))
		return "", false
	}
	s.metrics.Counter(observability.MetricTokenReads, 1, observability.T("result", "hit"))
	return value, true
}

// SetToken stores token, or removes it when token is nil. The change is
// committed atomically; on failure the previous value is retained and the
// returned error wraps ErrTokenWriteFailed.
func (s *TokenStore) SetToken(ctx context.Context, token *string) error {
	h := s.resolve(ctx)
	if h.store == nil {
		s.metrics.Counter(observability.MetricTokenWriteErrors, 1)
		return fmt.Errorf("%w: %w", domain.ErrTokenWriteFailed, domain.ErrEncryptionUnavailable)
	}

	if err := h.store.Commit(ctx, map[string]*string{domain.KeyToken: token}); err != nil {
		s.metrics.Counter(observability.MetricTokenWriteErrors, 1)
		s.logger.ErrorContext(ctx, "failed to write token", "store", s.name, observability.ErrorKey, err)
		return fmt.Errorf("%w: %w", domain.ErrTokenWriteFailed, err)
	}

	op := "set"
	if token == nil {
		op = "clear"
	}
	s.metrics.Counter(observability.MetricTokenWrites, 1, observability.T("op", op))
	s.logger.DebugContext(ctx, "token written", "store", s.name, "op", op)
	return nil
}

// ClearToken removes the stored token.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	return s.SetToken(ctx, nil)
}
