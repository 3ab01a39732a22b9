// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// KVStore persists small per-profile values (export templates, filter
// presets, confirmation flags). Namespace is the browser profile; keys follow
// the "{feature}-{module}" convention.
type KVStore interface {
	// Get returns the value of key. ok is false when the key is unset.
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Keys lists the keys of a namespace starting with prefix, sorted.
	Keys(ctx context.Context, namespace, prefix string) ([]string, error)
}
