// Package storage defines the persistence medium the cooldown tracker writes
// its blob to. A medium is a key-value store addressed by a fixed key.
package storage

import (
	"context"
	"errors"
)

// DefaultKey is the storage key the cooldown mapping is persisted under.
const DefaultKey = "saldo.reminder_cooldowns"

var (
	// ErrUnavailable reports a closed or unreachable medium.
	ErrUnavailable = errors.New("storage medium unavailable")
	// ErrEmptyKey is returned for an empty storage key.
	ErrEmptyKey = errors.New("empty storage key")
)

// Medium is a key-value blob store. Get reports found=false for a missing
// key; a missing key is never an error.
type Medium interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Closer is implemented by media holding connections.
type Closer interface {
	Close() error
}

// ValidateKey rejects keys no medium can address.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
