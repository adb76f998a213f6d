package repositorycache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-cacherepo/cache"
	"go.uber.org/zap"
)

// DefaultColdStartTTL is how long a GetAll marker keeps a type seeded.
const DefaultColdStartTTL = 48 * time.Hour

// IndexFormatter projects an entity onto one secondary index entry.
// An empty name or value leaves the entity out of that index.
type IndexFormatter[T any] func(entity T) (name, value string)

// CacheRepo is a typed cache-aside repository over an AppCache.
//
// Entities of T live in one partition, keyed by their formatted primary id,
// and are reachable through any number of exact-match secondary indexes.
type CacheRepo[T any] struct {
	cache        cache.AppCache
	typeName     string
	partition    string
	locate       IdentifierLocator[T]
	formatKey    func(id string) string
	formatters   []IndexFormatter[T]
	initIndexes  func() []IndexFormatter[T]
	indexOnce    sync.Once
	entryTTL     time.Duration
	coldStartTTL time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures a CacheRepo at construction.
type Option[T any] func(*CacheRepo[T])

// WithIdentifierLocator replaces reflective id discovery.
func WithIdentifierLocator[T any](locate IdentifierLocator[T]) Option[T] {
	return func(r *CacheRepo[T]) {
		if locate != nil {
			r.locate = locate
		}
	}
}

// WithPrimaryCacheKeyFormatter maps a primary id to its cache key. Defaults to identity.
func WithPrimaryCacheKeyFormatter[T any](format func(id string) string) Option[T] {
	return func(r *CacheRepo[T]) {
		if format != nil {
			r.formatKey = format
		}
	}
}

// WithPartitionName overrides DefaultPartitionName.
func WithPartitionName[T any](name string) Option[T] {
	return func(r *CacheRepo[T]) {
		if name != "" {
			r.partition = name
		}
	}
}

// WithCustomIndex indexes entities by value(entity) under name.
func WithCustomIndex[T any](name string, value func(T) string) Option[T] {
	return WithCustomIndexFormatter[T](func(entity T) (string, string) {
		return name, value(entity)
	})
}

// WithCustomIndexFormatter registers a formatter that picks the index name too.
func WithCustomIndexFormatter[T any](f IndexFormatter[T]) Option[T] {
	return func(r *CacheRepo[T]) {
		if f != nil {
			r.formatters = append(r.formatters, f)
		}
	}
}

// WithIndexInitializer registers formatters computed lazily, exactly once,
// before the first operation that needs them.
func WithIndexInitializer[T any](init func() []IndexFormatter[T]) Option[T] {
	return func(r *CacheRepo[T]) {
		r.initIndexes = init
	}
}

// WithEntryTTL expires every entity written by AddOrUpdate after d.
func WithEntryTTL[T any](d time.Duration) Option[T] {
	return func(r *CacheRepo[T]) {
		r.entryTTL = d
	}
}

// WithColdStartTTL sets the lifetime of the GetAll seeded marker.
func WithColdStartTTL[T any](d time.Duration) Option[T] {
	return func(r *CacheRepo[T]) {
		if d > 0 {
			r.coldStartTTL = d
		}
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(r *CacheRepo[T]) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewCacheRepo builds a CacheRepo for T. Defaults are resolved here once:
// reflective id discovery, identity keys and DefaultPartitionName.
func NewCacheRepo[T any](c cache.AppCache, opts ...Option[T]) *CacheRepo[T] {
	r := &CacheRepo[T]{
		cache:        c,
		typeName:     typeName[T](),
		partition:    DefaultPartitionName[T](),
		formatKey:    func(id string) string { return id },
		coldStartTTL: DefaultColdStartTTL,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.locate == nil {
		r.locate = DefaultIdentifierLocator[T]()
	}
	r.logger = r.logger.Named("repositorycache").With(zap.String("partition", r.partition))
	return r
}

// PartitionName returns the partition holding this repository's entities.
func (r *CacheRepo[T]) PartitionName() string { return r.partition }

// AppCache returns the backend the repository writes to.
func (r *CacheRepo[T]) AppCache() cache.AppCache { return r.cache }

func (r *CacheRepo[T]) indexes() []IndexFormatter[T] {
	r.indexOnce.Do(func() {
		if r.initIndexes != nil {
			r.formatters = append(r.formatters, r.initIndexes()...)
		}
	})
	return r.formatters
}

func (r *CacheRepo[T]) keyOf(entity T) (string, error) {
	id, err := r.locate(entity)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", nil
	}
	return r.formatKey(id), nil
}

// AddOrUpdate writes entity, replacing any cached version together with its
// index entries, then indexes the new version.
func (r *CacheRepo[T]) AddOrUpdate(ctx context.Context, entity T) error {
	formatters := r.indexes()

	key, err := r.keyOf(entity)
	if err != nil || key == "" {
		return err
	}

	existing, found, err := cache.GetValue[T](ctx, r.cache, key, r.partition)
	if err != nil {
		return err
	}
	if found {
		if err := r.remove(ctx, key, existing); err != nil {
			return err
		}
	}

	if err := r.cache.AddOrUpdateContext(ctx, key, entity, r.entryTTL, r.partition); err != nil {
		return err
	}

	for _, format := range formatters {
		name, value := format(entity)
		if name == "" || value == "" {
			continue
		}
		if err := r.cache.AddOrUpdateItemOnCustomIndexContext(ctx, name, value, key, r.partition); err != nil {
			return err
		}
	}
	return nil
}

// AddOrUpdateMany calls AddOrUpdate for each entity, stopping at the first error.
func (r *CacheRepo[T]) AddOrUpdateMany(ctx context.Context, entities []T) error {
	for _, entity := range entities {
		if err := r.AddOrUpdate(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromCache drops entity and its index entries. Index entries of the
// cached version are dropped as well when it differs from entity.
func (r *CacheRepo[T]) RemoveFromCache(ctx context.Context, entity T) error {
	key, err := r.keyOf(entity)
	if err != nil || key == "" {
		return err
	}

	cached, found, err := cache.GetValue[T](ctx, r.cache, key, r.partition)
	if err != nil {
		return err
	}
	if found {
		if err := r.removeIndexes(ctx, key, cached); err != nil {
			return err
		}
	}
	return r.remove(ctx, key, entity)
}

// RemoveMany calls RemoveFromCache for each entity, stopping at the first error.
func (r *CacheRepo[T]) RemoveMany(ctx context.Context, entities []T) error {
	for _, entity := range entities {
		if err := r.RemoveFromCache(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *CacheRepo[T]) remove(ctx context.Context, key string, entity T) error {
	if err := r.cache.RemoveContext(ctx, key, r.partition); err != nil {
		return err
	}
	return r.removeIndexes(ctx, key, entity)
}

func (r *CacheRepo[T]) removeIndexes(ctx context.Context, key string, entity T) error {
	for _, format := range r.indexes() {
		name, value := format(entity)
		if name == "" || value == "" {
			continue
		}
		if err := r.cache.RemoveFromCustomIndexContext(ctx, name, value, key, r.partition); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entity cached under id. The id is formatted with cache.FormatID.
func (r *CacheRepo[T]) Get(ctx context.Context, id any) (T, bool, error) {
	var zero T
	raw := cache.FormatID(id)
	if raw == "" {
		return zero, false, nil
	}
	return cache.GetValue[T](ctx, r.cache, r.formatKey(raw), r.partition)
}

// GetAll returns the partition contents behind the cold-start gate.
//
// Without a live marker for T the call sets it and returns an empty slice,
// forcing the caller to reload from the system of record once. With a live
// marker the marker is refreshed and the contents returned.
// skipConsistencyCheck returns the contents directly and leaves the marker alone.
func (r *CacheRepo[T]) GetAll(ctx context.Context, skipConsistencyCheck bool) ([]T, error) {
	if skipConsistencyCheck {
		return cache.GetAllItemsInPartition[T](ctx, r.cache, r.partition)
	}

	marker := cache.ComposeColdStartKey(r.typeName)
	seeded, err := r.cache.ContainsContext(ctx, marker, "")
	if err != nil {
		return nil, err
	}

	stamp := r.now().UTC().Format(time.RFC3339Nano)
	if err := r.cache.AddOrUpdateContext(ctx, marker, stamp, r.coldStartTTL, ""); err != nil {
		return nil, err
	}

	if !seeded {
		r.logger.Debug("cold start, returning empty result", zap.String("type", r.typeName))
		return []T{}, nil
	}
	return cache.GetAllItemsInPartition[T](ctx, r.cache, r.partition)
}

// GetAllWhere filters GetAll with predicate. A nil predicate yields an empty
// slice without consulting the cache.
func (r *CacheRepo[T]) GetAllWhere(ctx context.Context, predicate func(T) bool, skipConsistencyCheck bool) ([]T, error) {
	if predicate == nil {
		return []T{}, nil
	}
	all, err := r.GetAll(ctx, skipConsistencyCheck)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, entity := range all {
		if predicate(entity) {
			out = append(out, entity)
		}
	}
	return out, nil
}

// Find returns the entities indexed under (indexName, indexValue).
//
// Members whose current entity no longer yields that pair are dropped from the
// index. They are left behind when an expired entity is rewritten with new
// values, because the sweep that removed it cannot see its index entries.
func (r *CacheRepo[T]) Find(ctx context.Context, indexName, indexValue string) ([]T, error) {
	formatters := r.indexes()
	found, err := cache.Find[T](ctx, r.cache, indexName, indexValue, r.partition)
	if err != nil || len(formatters) == 0 {
		return found, err
	}

	out := found[:0]
	for _, entity := range found {
		if indexedUnder(formatters, entity, indexName, indexValue) {
			out = append(out, entity)
			continue
		}
		key, err := r.keyOf(entity)
		if err != nil {
			return nil, err
		}
		if err := r.cache.RemoveFromCustomIndexContext(ctx, indexName, indexValue, key, r.partition); err != nil {
			return nil, err
		}
		r.logger.Debug("dropped stale index member",
			zap.String("index", indexName),
			zap.String("key", key),
		)
	}
	return out, nil
}

func indexedUnder[T any](formatters []IndexFormatter[T], entity T, indexName, indexValue string) bool {
	for _, format := range formatters {
		if name, value := format(entity); name == indexName && value == indexValue {
			return true
		}
	}
	return false
}
