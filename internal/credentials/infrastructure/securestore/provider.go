// Package securestore provides encrypted key-value stores for credentials.
package securestore

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/security"
)

// Backend opens the raw store for a name. Values it holds are ciphertext
// when accessed through a Provider.
type Backend interface {
	Open(ctx context.Context, name string) (domain.SecureStore, error)
}

// Provider implements domain.SecureStorageProvider by layering AES-GCM
// encryption over a Backend.
type Provider struct {
	backend   Backend
	encrypter crypto.Encrypter
	logger    *slog.Logger
}

// NewProvider creates a Provider. A nil encrypter makes every store absent.
func NewProvider(backend Backend, encrypter crypto.Encrypter, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{backend: backend, encrypter: encrypter, logger: logger}
}

// NewProviderFromKey builds the encrypter from a base64 key. An empty or
// invalid key yields a provider without encryption; the error is logged.
func NewProviderFromKey(backend Backend, encodedKey string, logger *slog.Logger) *Provider {
	p := NewProvider(backend, nil, logger)
	enc, err := crypto.NewAESGCMFromBase64Key(encodedKey)
	if err != nil {
		p.logger.Warn("encryption key unusable", "error", err)
		return p
	}
	p.encrypter = enc
	return p
}

// SecureStore returns the encrypted store for name, or false when no
// encryption key is available or the backend cannot be opened.
func (p *Provider) SecureStore(ctx context.Context, name string) (domain.SecureStore, bool) {
	if p.encrypter == nil || p.backend == nil {
		return nil, false
	}
	if err := security.ValidateName(name); err != nil {
		p.logger.WarnContext(ctx, "rejected secure store name", "error", err)
		return nil, false
	}
	raw, err := p.backend.Open(ctx, name)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to open secure store", "store", name, "error", err)
		return nil, false
	}
	return NewEncrypted(raw, p.encrypter), true
}
