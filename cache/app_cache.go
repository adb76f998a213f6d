package cache

import (
	"context"
	"reflect"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// appCache implements the partition, index and expiry protocol over a cacheinfra.Store.
type appCache struct {
	store   cacheinfra.Store
	opts    options
	logger  *zap.Logger
	sweeps  singleflight.Group
	release func() error
	closed  atomic.Bool
}

var _ AppCache = (*appCache)(nil)

// NewRedis returns an AppCache backed by the Redis client behind conn.
// The backend takes its own reference on conn and releases it on Close.
func NewRedis(conn *Conn, opts ...Option) (AppCache, error) {
	if conn == nil {
		return nil, errors.New("cache: nil redis connection")
	}
	client, err := conn.Acquire()
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	store := cacheinfra.NewRedisStore(client, o.queryTimeout)
	return newAppCache(store, o, conn.Close), nil
}

// NewRedisClient returns an AppCache over client.
// The caller owns the client lifecycle; Close does not close it.
func NewRedisClient(client redis.UniversalClient, opts ...Option) AppCache {
	o := applyOptions(opts)
	return newAppCache(cacheinfra.NewRedisStore(client, o.queryTimeout), o, nil)
}

// NewLocal returns an AppCache kept in process memory.
func NewLocal(cfg LocalConfig, opts ...Option) (AppCache, error) {
	o := applyOptions(opts)
	store, err := cacheinfra.NewLocalStore(cfg.toInternal(), o.clock.Now)
	if err != nil {
		return nil, err
	}
	return newAppCache(store, o, nil), nil
}

func newAppCache(store cacheinfra.Store, o options, release func() error) *appCache {
	return &appCache{
		store:   store,
		opts:    o,
		logger:  o.logger.Named("cache"),
		release: release,
	}
}

func (c *appCache) key(k string) string {
	if c.opts.prefix == "" {
		return k
	}
	return c.opts.prefix + KeySeparator + k
}

func (c *appCache) now() time.Time {
	return c.opts.clock.Now().UTC()
}

func (c *appCache) ContainsContext(ctx context.Context, key, partition string) (bool, error) {
	if key == "" {
		return false, nil
	}
	if partition == "" {
		return c.store.Exists(ctx, c.key(key))
	}
	expired, err := c.expireIfStale(ctx, key, partition)
	if err != nil || expired {
		return false, err
	}
	return c.store.HExists(ctx, c.key(ComposePartitionKey(partition)), key)
}

func (c *appCache) Contains(key, partition string) (bool, error) {
	return c.ContainsContext(c.opts.ctx, key, partition)
}

func (c *appCache) GetRawContext(ctx context.Context, key, partition string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var (
		data []byte
		ok   bool
		err  error
	)
	if partition == "" {
		data, ok, err = c.store.Get(ctx, c.key(key))
	} else {
		var expired bool
		expired, err = c.expireIfStale(ctx, key, partition)
		if err != nil {
			return nil, err
		}
		if expired {
			c.opts.metrics.Miss()
			return nil, nil
		}
		data, ok, err = c.store.HGet(ctx, c.key(ComposePartitionKey(partition)), key)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		c.opts.metrics.Miss()
		return nil, nil
	}
	c.opts.metrics.Hit()
	return data, nil
}

func (c *appCache) GetContext(ctx context.Context, key, partition string) (any, error) {
	data, err := c.GetRawContext(ctx, key, partition)
	if err != nil || data == nil {
		return nil, err
	}
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		return nil, nil
	}
	return v, nil
}

func (c *appCache) Get(key, partition string) (any, error) {
	return c.GetContext(c.opts.ctx, key, partition)
}

func (c *appCache) GetAllRawInPartitionContext(ctx context.Context, partition string) ([]Entry, error) {
	if partition == "" {
		return []Entry{}, nil
	}
	if _, err := c.RemoveExpiredItemsFromPartitionContext(ctx, partition); err != nil {
		return nil, err
	}
	fields, err := c.store.HGetAll(ctx, c.key(ComposePartitionKey(partition)))
	if err != nil {
		return nil, err
	}
	return sortedEntries(fields), nil
}

func (c *appCache) FindRawContext(ctx context.Context, indexName, indexValue, partition string) ([]Entry, error) {
	indexKey := ComposeKeyForCustomIndex(indexName, indexValue)
	if indexKey == "" {
		return []Entry{}, nil
	}
	if partition == "" {
		return c.findInSet(ctx, c.key(indexKey))
	}
	if _, err := c.RemoveExpiredItemsFromPartitionContext(ctx, partition); err != nil {
		return nil, err
	}
	return c.findInHash(ctx, c.key(indexKey), ComposePartitionKey(partition))
}

func (c *appCache) findInSet(ctx context.Context, indexKey string) ([]Entry, error) {
	members, err := c.store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(members)

	entries := make([]Entry, 0, len(members))
	var stale []string
	for _, member := range members {
		data, ok, err := c.store.Get(ctx, c.key(member))
		if err != nil {
			return nil, err
		}
		if !ok {
			stale = append(stale, member)
			continue
		}
		entries = append(entries, Entry{Key: member, Value: data})
	}

	if len(stale) > 0 {
		if err := c.store.SRem(ctx, indexKey, stale...); err != nil {
			return nil, err
		}
		c.pruned(indexKey, stale)
	}
	return entries, nil
}

func (c *appCache) findInHash(ctx context.Context, indexKey, fallbackPartitionKey string) ([]Entry, error) {
	members, err := c.store.HGetAll(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(members))
	for member := range members {
		names = append(names, member)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	var stale []string
	for _, member := range names {
		partitionKey := string(members[member])
		if partitionKey == "" {
			partitionKey = fallbackPartitionKey
		}
		data, ok, err := c.store.HGet(ctx, c.key(partitionKey), member)
		if err != nil {
			return nil, err
		}
		if !ok {
			stale = append(stale, member)
			continue
		}
		entries = append(entries, Entry{Key: member, Value: data})
	}

	if len(stale) > 0 {
		if err := c.store.HDel(ctx, indexKey, stale...); err != nil {
			return nil, err
		}
		c.pruned(indexKey, stale)
	}
	return entries, nil
}

func (c *appCache) pruned(indexKey string, members []string) {
	c.opts.metrics.IndexPruned(len(members))
	c.logger.Debug("pruned stale index members",
		zap.String("index", indexKey),
		zap.Strings("members", members),
	)
}

func (c *appCache) AddOrUpdateContext(ctx context.Context, key string, value any, ttl time.Duration, partition string) error {
	if key == "" || isNil(value) {
		return nil
	}

	data, err := c.opts.serializer.Marshal(value)
	if err != nil {
		return &SerializationError{Key: key, Op: "encode", Err: err}
	}

	if partition == "" {
		return c.store.Set(ctx, c.key(key), data, ttl)
	}

	partitionKey := ComposePartitionKey(partition)
	shadowKey := c.key(ComposeTimeoutPartitionKey(partition))

	if err := c.store.SAdd(ctx, c.key(AllPartitionsKey), partitionKey); err != nil {
		return err
	}
	if err := c.store.HSet(ctx, c.key(partitionKey), key, data); err != nil {
		return err
	}
	if ttl <= 0 {
		// an older timed write must not expire this one
		return c.store.HDel(ctx, shadowKey, key)
	}
	deadline := c.now().Add(ttl).Format(time.RFC3339Nano)
	return c.store.HSet(ctx, shadowKey, key, []byte(deadline))
}

func (c *appCache) AddOrUpdate(key string, value any, ttl time.Duration, partition string) error {
	return c.AddOrUpdateContext(c.opts.ctx, key, value, ttl, partition)
}

func (c *appCache) AddOrUpdateItemOnCustomIndexContext(ctx context.Context, indexName, indexValue, memberKey, partition string) error {
	indexKey := ComposeKeyForCustomIndex(indexName, indexValue)
	if indexKey == "" || memberKey == "" {
		return nil
	}
	if partition == "" {
		return c.store.SAdd(ctx, c.key(indexKey), memberKey)
	}
	return c.store.HSet(ctx, c.key(indexKey), memberKey, []byte(ComposePartitionKey(partition)))
}

func (c *appCache) AddOrUpdateItemOnCustomIndex(indexName, indexValue, memberKey, partition string) error {
	return c.AddOrUpdateItemOnCustomIndexContext(c.opts.ctx, indexName, indexValue, memberKey, partition)
}

func (c *appCache) RemoveContext(ctx context.Context, key, partition string) error {
	if key == "" {
		return nil
	}
	if partition == "" {
		return c.store.Del(ctx, c.key(key))
	}
	return c.store.PurgeFields(ctx, []string{key},
		c.key(ComposePartitionKey(partition)),
		c.key(ComposeTimeoutPartitionKey(partition)),
	)
}

func (c *appCache) Remove(key, partition string) error {
	return c.RemoveContext(c.opts.ctx, key, partition)
}

func (c *appCache) RemoveFromCustomIndexContext(ctx context.Context, indexName, indexValue, memberKey, partition string) error {
	indexKey := ComposeKeyForCustomIndex(indexName, indexValue)
	if indexKey == "" || memberKey == "" {
		return nil
	}
	if partition == "" {
		return c.store.SRem(ctx, c.key(indexKey), memberKey)
	}
	return c.store.HDel(ctx, c.key(indexKey), memberKey)
}

func (c *appCache) RemoveFromCustomIndex(indexName, indexValue, memberKey, partition string) error {
	return c.RemoveFromCustomIndexContext(c.opts.ctx, indexName, indexValue, memberKey, partition)
}

// RemoveExpiredItemsFromPartitionContext coalesces concurrent sweeps of the same partition.
// The shared sweep runs detached from the caller that started it, so one
// caller's cancellation never fails the others. Store commands keep their
// per-query timeout.
func (c *appCache) RemoveExpiredItemsFromPartitionContext(ctx context.Context, partition string) (int, error) {
	if partition == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sweepCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sweeps.Do(partition, func() (any, error) {
		return c.sweep(sweepCtx, partition)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *appCache) RemoveExpiredItemsFromPartition(partition string) (int, error) {
	return c.RemoveExpiredItemsFromPartitionContext(c.opts.ctx, partition)
}

func (c *appCache) sweep(ctx context.Context, partition string) (int, error) {
	shadowKey := c.key(ComposeTimeoutPartitionKey(partition))
	deadlines, err := c.store.HGetAll(ctx, shadowKey)
	if err != nil {
		return 0, err
	}
	if len(deadlines) == 0 {
		return 0, nil
	}

	now := c.now()
	var expired []string
	for key, raw := range deadlines {
		if isExpired(raw, now) {
			expired = append(expired, key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	sort.Strings(expired)

	if err := c.store.PurgeFields(ctx, expired, c.key(ComposePartitionKey(partition)), shadowKey); err != nil {
		return 0, err
	}

	c.opts.metrics.Expired(len(expired))
	c.logger.Debug("removed expired partition items",
		zap.String("partition", partition),
		zap.Int("count", len(expired)),
	)
	return len(expired), nil
}

// expireIfStale sweeps the partition when key's deadline has passed.
func (c *appCache) expireIfStale(ctx context.Context, key, partition string) (bool, error) {
	raw, ok, err := c.store.HGet(ctx, c.key(ComposeTimeoutPartitionKey(partition)), key)
	if err != nil || !ok {
		return false, err
	}
	if !isExpired(raw, c.now()) {
		return false, nil
	}
	if _, err := c.RemoveExpiredItemsFromPartitionContext(ctx, partition); err != nil {
		return true, err
	}
	return true, nil
}

func (c *appCache) ClearCacheContext(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		return err
	}
	c.logger.Debug("cache cleared")
	return nil
}

func (c *appCache) ClearCache() error {
	return c.ClearCacheContext(c.opts.ctx)
}

func (c *appCache) GetAllPartitionNamesContext(ctx context.Context) ([]string, error) {
	members, err := c.store.SMembers(ctx, c.key(AllPartitionsKey))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, PartitionNameFromKey(m))
	}
	sort.Strings(names)
	return names, nil
}

func (c *appCache) GetAllPartitionNames() ([]string, error) {
	return c.GetAllPartitionNamesContext(c.opts.ctx)
}

func (c *appCache) ComposeKeyForCustomIndex(indexName, indexValue string) string {
	return ComposeKeyForCustomIndex(indexName, indexValue)
}

func (c *appCache) Unmarshal(data []byte, v any) error {
	if err := c.opts.serializer.Unmarshal(data, v); err != nil {
		c.opts.metrics.Corrupt()
		c.logger.Warn("failed to decode cached value", zap.Error(err))
		return &SerializationError{Op: "decode", Err: err}
	}
	return nil
}

func (c *appCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.store.Close()
	if c.release != nil {
		err = errors.CombineErrors(err, c.release())
	}
	return err
}

// isExpired treats unreadable deadlines as already passed.
func isExpired(raw []byte, now time.Time) bool {
	deadline, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return true
	}
	return !deadline.After(now)
}

func sortedEntries(fields map[string][]byte) []Entry {
	entries := make([]Entry, 0, len(fields))
	for k, v := range fields {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
