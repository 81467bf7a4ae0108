package securestore

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/crypto"
)

// Encrypted stores base64 AES-GCM ciphertext in the wrapped store.
type Encrypted struct {
	inner     domain.SecureStore
	encrypter crypto.Encrypter
}

// NewEncrypted wraps inner.
func NewEncrypted(inner domain.SecureStore, encrypter crypto.Encrypter) *Encrypted {
	return &Encrypted{inner: inner, encrypter: encrypter}
}

// Get decrypts the stored value.
func (e *Encrypted) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := e.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := crypto.DecryptString(e.encrypter, sealed)
	if err != nil {
		return "", false, fmt.Errorf("decrypt %s: %w", key, err)
	}
	return plain, true, nil
}

// Commit encrypts every value before handing the batch to the wrapped
// store. Nothing is written if any value fails to encrypt.
func (e *Encrypted) Commit(ctx context.Context, changes map[string]*string) error {
	sealed := make(map[string]*string, len(changes))
	for key, value := range changes {
		if value == nil {
			sealed[key] = nil
			continue
		}
		ct, err := crypto.EncryptString(e.encrypter, *value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", key, err)
		}
		sealed[key] = &ct
	}
	return e.inner.Commit(ctx, sealed)
}
