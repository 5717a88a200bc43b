// Package kv is a small key-value store for service metadata, keyed by
// colon-joined hierarchical paths such as upload:<id>. Values may carry a
// time-to-live after which they disappear.
//
// [Badger] persists to disk (or runs in memory) on BadgerDB; [Memory] is a
// map-backed store for tests and ephemeral deployments.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments.
const Separator = ":"

// Key is a hierarchical path. Segments must not contain Separator.
type Key []string

func (k Key) String() string {
	return strings.Join(k, Separator)
}

// ParseKey splits an encoded key back into segments.
func ParseKey(s string) Key {
	return Key(strings.Split(s, Separator))
}

// scanPrefix is the encoded prefix matching keys strictly below k, so
// upload does not match uploads:x.
func (k Key) scanPrefix() string {
	if len(k) == 0 {
		return ""
	}
	return k.String() + Separator
}

// Entry is a key and its value.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores value under key. A positive ttl makes the entry expire.
	Put(ctx context.Context, key Key, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// Scan yields live entries below prefix in lexicographic key order.
	Scan(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}
