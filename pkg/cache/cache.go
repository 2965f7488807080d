// Package cache memoizes stamped output bytes so unchanged inputs in a
// batch are not re-rendered.
//
// Keys cover everything that influences the output: the input file bytes,
// the pattern table, and the render settings. Caching is best-effort — a
// cache failure degrades to recomputation and never aborts a run.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the interface for artifact storage backends.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was present
	// and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLStamp is how long stamped outputs stay cached. Inputs are keyed by
// content hash, so entries never go stale; the TTL only bounds disk usage.
const TTLStamp = 14 * 24 * time.Hour

// StampKey builds the cache key for a stamped output from the input bytes
// and the settings that shape the result (pattern table text, batch-relevant
// render settings).
func StampKey(input []byte, parts ...any) string {
	return hashKey("stamp", append([]any{Hash(input)}, parts...)...)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
