// Package kvstore provides the string-keyed counter store behind the rate
// limiters, brute-force gate and security monitor aggregates. Any backend
// with atomic increment and per-key TTL semantics satisfies the interface;
// MemoryStore serves single-instance deployments and tests, RedisStore
// serves multi-instance deployments.
package kvstore

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the value and whether the key exists and is unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a value with a TTL. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Incr atomically increments a counter, applying ttl only when the key
	// is created by this call. Returns the post-increment count.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Decr atomically decrements a counter, never below zero.
	Decr(ctx context.Context, key string) (int64, error)
	// TTL returns the remaining lifetime of a key; zero if the key does not
	// exist or carries no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// SAdd adds a member to a set, applying ttl only when the set is
	// created by this call.
	SAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SCard(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	// Keys returns all live keys matching the prefix. Used by admin reads,
	// not by the request path.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
