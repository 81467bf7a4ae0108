package domain

import "errors"

var (
	// ErrTokenWriteFailed is returned when the token could not be committed.
	// The previously stored value is retained.
	ErrTokenWriteFailed = errors.New("token write failed")
	// ErrEncryptionUnavailable means no encrypted store exists and no
	// fallback is configured.
	ErrEncryptionUnavailable = errors.New("encryption unavailable")
	// ErrStoreClosed is returned by backends used after Close.
	ErrStoreClosed = errors.New("secure store closed")
)
