// Package domain defines the credential store contracts.
package domain

import "context"

const (
	// DefaultStoreName is the secure store holding subscription credentials.
	DefaultStoreName = "subscriptions.store"
	// KeyToken is the key of the authentication token inside the store.
	KeyToken = "KEY_TOKEN"
)

// SecureStore is a key-value store whose Commit applies every change or none.
type SecureStore interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Commit writes each entry; a nil value removes the key.
	Commit(ctx context.Context, changes map[string]*string) error
}

// SecureStorageProvider opens named secure stores. ok is false when the
// platform cannot offer an encrypted store.
type SecureStorageProvider interface {
	SecureStore(ctx context.Context, name string) (store SecureStore, ok bool)
}
