// Package storage is the durable key/value area shared by every tab of an
// origin. Keys are namespaced by origin so several storefronts can share one
// backing store.
package storage

import (
	"context"
	"strings"
)

// Storage persists opaque values by key.
//
// Get on a missing key returns sentinel.ErrNotFound. Delete of a missing key
// is not an error. Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys.
const (
	// KeySession holds the serialized session record. It is the only durable
	// record the storefront writes.
	KeySession = "session"
)

// NamespacedKey returns "<origin>:<key>".
func NamespacedKey(origin, key string) string {
	var b strings.Builder
	b.Grow(len(origin) + 1 + len(key))
	b.WriteString(origin)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
