package cache

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// Conn is a shared, reference-counted Redis client handle.
//
// The creator holds the first reference. Each backend built with NewRedis
// acquires its own and releases it on Close; the client is closed when the
// last reference is released.
type Conn struct {
	mu     sync.Mutex
	client redis.UniversalClient
	refs   int
}

// NewConn creates the Redis client once and returns a handle owning one reference.
func NewConn(opts *redis.Options) *Conn {
	return NewConnFromClient(redis.NewClient(opts))
}

// NewConnFromClient adopts an existing client. Releasing the last reference closes it.
func NewConnFromClient(client redis.UniversalClient) *Conn {
	return &Conn{client: client, refs: 1}
}

// Acquire takes a new reference and returns the client.
func (c *Conn) Acquire() (redis.UniversalClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs == 0 {
		return nil, ErrConnClosed
	}
	c.refs++
	return c.client, nil
}

// Refs reports the number of outstanding references.
func (c *Conn) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Close releases one reference. Extra calls after the last release are no-ops.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs == 0 {
		return nil
	}
	c.refs--
	if c.refs == 0 {
		return c.client.Close()
	}
	return nil
}
