package cacheinfra

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnavailable marks failures to reach the underlying store.
var ErrUnavailable = errors.New("cache backend unavailable")

// ErrStoreClosed is returned by a LocalStore after Close.
var ErrStoreClosed = errors.New("cache store closed")

// Store is the primitive key-value surface the cache protocol is written against.
// Every method is atomic for the single key (or single hash field) it touches.
// Absent keys and fields are reported through the bool results, never as errors.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes a plain key. ttl <= 0 stores the key without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	HSet(ctx context.Context, key, field string, value []byte) error
	HDel(ctx context.Context, key string, fields ...string) error
	HExists(ctx context.Context, key, field string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// PurgeFields deletes the same fields from every listed hash as one batch.
	PurgeFields(ctx context.Context, fields []string, keys ...string) error

	// Flush wipes every key in the store's scope.
	Flush(ctx context.Context) error
	Close() error
}

func unavailable(err error, op string) error {
	return errors.Mark(errors.Wrapf(err, "cacheinfra: %s", op), ErrUnavailable)
}
