package cacheinfra

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultQueryTimeout is the per-command timeout applied by RedisStore when none is configured.
const DefaultQueryTimeout = 5 * time.Second

// RedisStore implements Store on top of a go-redis client.
// The caller owns the client lifecycle; Close is a no-op.
type RedisStore struct {
	client       redis.UniversalClient
	queryTimeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. A non-positive queryTimeout falls back to DefaultQueryTimeout.
func NewRedisStore(client redis.UniversalClient, queryTimeout time.Duration) *RedisStore {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &RedisStore{client: client, queryTimeout: queryTimeout}
}

func (s *RedisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	data, err := s.client.Get(qctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(err, "get")
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		// go-redis reads -1 as KEEPTTL
		ttl = 0
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.Set(qctx, key, value, ttl).Err(); err != nil {
		return unavailable(err, "set")
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	n, err := s.client.Exists(qctx, key).Result()
	if err != nil {
		return false, unavailable(err, "exists")
	}
	return n > 0, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.Del(qctx, keys...).Err(); err != nil {
		return unavailable(err, "del")
	}
	return nil
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	data, err := s.client.HGet(qctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(err, "hget")
	}
	return data, true, nil
}

func (s *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.HSet(qctx, key, field, value).Err(); err != nil {
		return unavailable(err, "hset")
	}
	return nil
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.HDel(qctx, key, fields...).Err(); err != nil {
		return unavailable(err, "hdel")
	}
	return nil
}

func (s *RedisStore) HExists(ctx context.Context, key, field string) (bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	ok, err := s.client.HExists(qctx, key, field).Result()
	if err != nil {
		return false, unavailable(err, "hexists")
	}
	return ok, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	raw, err := s.client.HGetAll(qctx, key).Result()
	if err != nil {
		return nil, unavailable(err, "hgetall")
	}
	out := make(map[string][]byte, len(raw))
	for field, value := range raw {
		out[field] = []byte(value)
	}
	return out, nil
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.SAdd(qctx, key, toArgs(members)...).Err(); err != nil {
		return unavailable(err, "sadd")
	}
	return nil
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.SRem(qctx, key, toArgs(members)...).Err(); err != nil {
		return unavailable(err, "srem")
	}
	return nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	members, err := s.client.SMembers(qctx, key).Result()
	if err != nil {
		return nil, unavailable(err, "smembers")
	}
	return members, nil
}

// PurgeFields runs the deletions inside MULTI/EXEC so readers never observe
// a data field without its shadow or the reverse.
func (s *RedisStore) PurgeFields(ctx context.Context, fields []string, keys ...string) error {
	if len(fields) == 0 || len(keys) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err := s.client.TxPipelined(qctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.HDel(qctx, key, fields...)
		}
		return nil
	})
	if err != nil {
		return unavailable(err, "purge")
	}
	return nil
}

func (s *RedisStore) Flush(ctx context.Context) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.FlushDB(qctx).Err(); err != nil {
		return unavailable(err, "flushdb")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return nil
}

func toArgs(members []string) []any {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
