package cache

import (
	"context"
	"time"
)

// Entry is a raw stored value together with the key it was found under.
type Entry struct {
	Key   string
	Value []byte
}

// AppCache is the backend contract the repository layer is written against.
//
// Every operation has a Context variant, which is the primary form, and a
// synchronous variant that runs on the context given with WithContext. The
// synchronous variants must not be called from inside another operation.
//
// An empty partition selects plain top-level keys. A non-empty partition
// stores items as fields of the partition hash, with optional expiry tracked
// in a parallel shadow hash.
//
// Empty keys, empty index names or values and nil values are no-ops that
// return zero results and a nil error.
type AppCache interface {
	// Contains reports whether key is present and, for partitioned keys, not expired.
	Contains(key, partition string) (bool, error)
	ContainsContext(ctx context.Context, key, partition string) (bool, error)

	// Get returns the decoded value stored at key, or nil.
	// Values that fail to decode are reported as absent.
	Get(key, partition string) (any, error)
	GetContext(ctx context.Context, key, partition string) (any, error)
	// GetRawContext returns the stored bytes at key, or nil.
	GetRawContext(ctx context.Context, key, partition string) ([]byte, error)

	// GetAllRawInPartitionContext returns every live entry of the partition, ordered by key.
	GetAllRawInPartitionContext(ctx context.Context, partition string) ([]Entry, error)
	// FindRawContext resolves the members of an index to their stored entries,
	// dropping members whose entry no longer exists.
	FindRawContext(ctx context.Context, indexName, indexValue, partition string) ([]Entry, error)

	// AddOrUpdate stores value at key. ttl <= 0 stores it without expiry.
	AddOrUpdate(key string, value any, ttl time.Duration, partition string) error
	AddOrUpdateContext(ctx context.Context, key string, value any, ttl time.Duration, partition string) error

	// AddOrUpdateItemOnCustomIndex records memberKey under (indexName, indexValue).
	AddOrUpdateItemOnCustomIndex(indexName, indexValue, memberKey, partition string) error
	AddOrUpdateItemOnCustomIndexContext(ctx context.Context, indexName, indexValue, memberKey, partition string) error

	// Remove deletes key and, for partitioned keys, its expiry shadow.
	Remove(key, partition string) error
	RemoveContext(ctx context.Context, key, partition string) error

	// RemoveFromCustomIndex drops memberKey from (indexName, indexValue).
	RemoveFromCustomIndex(indexName, indexValue, memberKey, partition string) error
	RemoveFromCustomIndexContext(ctx context.Context, indexName, indexValue, memberKey, partition string) error

	// RemoveExpiredItemsFromPartition deletes every item whose deadline has
	// passed together with its shadow entry and reports how many were removed.
	RemoveExpiredItemsFromPartition(partition string) (int, error)
	RemoveExpiredItemsFromPartitionContext(ctx context.Context, partition string) (int, error)

	// ClearCache wipes every key in the backend's scope.
	ClearCache() error
	ClearCacheContext(ctx context.Context) error

	// GetAllPartitionNames lists every partition ever written to, sorted.
	GetAllPartitionNames() ([]string, error)
	GetAllPartitionNamesContext(ctx context.Context) ([]string, error)

	// ComposeKeyForCustomIndex returns the storage key for an index entry.
	ComposeKeyForCustomIndex(indexName, indexValue string) string

	// Unmarshal decodes a stored value with the cache's serializer.
	// Failures are logged, counted and returned as *SerializationError.
	Unmarshal(data []byte, v any) error

	Close() error
}
