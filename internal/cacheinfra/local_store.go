package cacheinfra

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

type (
	fieldMap  = xsync.MapOf[string, []byte]
	memberSet = xsync.MapOf[string, struct{}]
)

// LocalStore implements Store inside the process.
//
// Plain keys live in a sturdyc client; each entry carries its own deadline,
// checked on read. Hashes and sets are xsync maps so every field operation is
// atomic without a store-wide lock.
type LocalStore struct {
	plain  *sturdyc.Client[entry]
	hashes *xsync.MapOf[string, *fieldMap]
	sets   *xsync.MapOf[string, *memberSet]
	now    func() time.Time
	closed atomic.Bool
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore validates cfg and builds the sturdyc client. now may be nil.
func NewLocalStore(cfg Config, now func() time.Time) (*LocalStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxRetention,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &LocalStore{
		plain:  client,
		hashes: xsync.NewMapOf[string, *fieldMap](),
		sets:   xsync.NewMapOf[string, *memberSet](),
		now:    now,
	}, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	e, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	return clone(e.data), true, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	e := entry{data: clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.plain.Set(key, e)
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	if _, ok := s.live(key); ok {
		return true, nil
	}
	if h, ok := s.hashes.Load(key); ok && h.Size() > 0 {
		return true, nil
	}
	if m, ok := s.sets.Load(key); ok && m.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func (s *LocalStore) Del(_ context.Context, keys ...string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	for _, key := range keys {
		s.plain.Delete(key)
		s.hashes.Delete(key)
		s.sets.Delete(key)
	}
	return nil
}

func (s *LocalStore) HGet(_ context.Context, key, field string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	h, ok := s.hashes.Load(key)
	if !ok {
		return nil, false, nil
	}
	v, ok := h.Load(field)
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *LocalStore) HSet(_ context.Context, key, field string, value []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	h, _ := s.hashes.LoadOrCompute(key, func() *fieldMap {
		return xsync.NewMapOf[string, []byte]()
	})
	h.Store(field, clone(value))
	return nil
}

func (s *LocalStore) HDel(_ context.Context, key string, fields ...string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	h, ok := s.hashes.Load(key)
	if !ok {
		return nil
	}
	for _, field := range fields {
		h.Delete(field)
	}
	return nil
}

func (s *LocalStore) HExists(_ context.Context, key, field string) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	h, ok := s.hashes.Load(key)
	if !ok {
		return false, nil
	}
	_, ok = h.Load(field)
	return ok, nil
}

func (s *LocalStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	out := make(map[string][]byte)
	h, ok := s.hashes.Load(key)
	if !ok {
		return out, nil
	}
	h.Range(func(field string, value []byte) bool {
		out[field] = clone(value)
		return true
	})
	return out, nil
}

func (s *LocalStore) SAdd(_ context.Context, key string, members ...string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if len(members) == 0 {
		return nil
	}
	set, _ := s.sets.LoadOrCompute(key, func() *memberSet {
		return xsync.NewMapOf[string, struct{}]()
	})
	for _, m := range members {
		set.Store(m, struct{}{})
	}
	return nil
}

func (s *LocalStore) SRem(_ context.Context, key string, members ...string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	set, ok := s.sets.Load(key)
	if !ok {
		return nil
	}
	for _, m := range members {
		set.Delete(m)
	}
	return nil
}

func (s *LocalStore) SMembers(_ context.Context, key string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	set, ok := s.sets.Load(key)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, 0, set.Size())
	set.Range(func(member string, _ struct{}) bool {
		out = append(out, member)
		return true
	})
	return out, nil
}

// PurgeFields deletes field by field. Each deletion is atomic, the batch as a whole is not.
func (s *LocalStore) PurgeFields(ctx context.Context, fields []string, keys ...string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	for _, key := range keys {
		if err := s.HDel(ctx, key, fields...); err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalStore) Flush(_ context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	for _, key := range s.plain.ScanKeys() {
		s.plain.Delete(key)
	}
	s.hashes.Clear()
	s.sets.Clear()
	return nil
}

// Close drops every entry and makes later calls fail with ErrStoreClosed.
// sturdyc has no stop hook, so its eviction loop keeps running over an empty client.
func (s *LocalStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, key := range s.plain.ScanKeys() {
		s.plain.Delete(key)
	}
	s.hashes.Clear()
	s.sets.Clear()
	return nil
}

// live returns the entry stored at key unless its deadline has passed,
// in which case the entry is dropped.
func (s *LocalStore) live(key string) (entry, bool) {
	e, ok := s.plain.Get(key)
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.plain.Delete(key)
		return entry{}, false
	}
	return e, true
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
