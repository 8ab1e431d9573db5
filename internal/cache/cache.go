// Package cache provides the small key/value stores backing process state that
// must outlive a single request, such as the AniDB dispatch ledger. Resolution
// results are never stored here.
package cache

import "time"

// Cache is a key/value store with per-entry TTL.
// Implementations may keep entries in memory or in an external backend like Redis/Valkey.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true if found, or nil and false if not.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key, overwriting any existing value.
	Set(key string, value []byte)

	// SetIfAbsent stores value under key with its own ttl only when no live
	// entry exists, and reports whether it did. The check and the write are one
	// atomic step, so concurrent callers (in any process sharing the backend)
	// cannot both succeed.
	SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error)

	// Len returns the number of live entries.
	Len() int

	// Close releases any resources held by the cache (e.g., network connections).
	Close() error
}
