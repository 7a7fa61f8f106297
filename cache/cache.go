// Package cache is the local durable key-value byte store. It holds the
// last-known-good snapshot of the database, the installation identifier,
// migration backups and the legacy per-feature namespaces.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

// LocalCache is implemented by every local storage backend. Set always
// overwrites the whole value; there are no partial writes.
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order. An empty
	// prefix lists everything.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
