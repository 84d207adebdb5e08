// Package kv provides durable key to string-blob storage with pluggable
// backends. A Store knows nothing about what the blobs mean.
package kv

import "context"

// Store defines the blob storage interface. Single-key writes are atomic;
// nothing else is.
type Store interface {
	// Get returns the stored value. ok is false if the key was never written
	// or has been removed.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend.
	Close() error
}
