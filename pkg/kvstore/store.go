// Package kvstore defines the key-value engine seam beneath the block store.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that have no value.
var ErrNotFound = errors.New("key not found")

// KVStore is a flat key-value engine. Implementations guarantee single-key
// atomicity (a concurrent Get never observes a torn Put) but no cross-key
// transactions; callers own write ordering.
type KVStore interface {
	// Put stores a key-value pair, overwriting any existing value.
	Put(ctx context.Context, key, value []byte) error

	// Get returns the value stored under key. Missing keys fail with
	// ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Has reports whether key has a value.
	Has(ctx context.Context, key []byte) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Clear removes every key-value pair, leaving an empty store.
	Clear(ctx context.Context) error

	// Close releases engine resources. Stored data survives.
	Close() error

	// Destroy closes the engine and permanently removes its storage.
	Destroy() error
}
