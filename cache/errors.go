package cache

import (
	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/internal/cacheinfra"
)

var (
	// ErrBackendUnavailable marks failures to reach the backing store.
	// Check for it with errors.Is from github.com/cockroachdb/errors.
	ErrBackendUnavailable = cacheinfra.ErrUnavailable

	// ErrSerialization is matched by every *SerializationError.
	ErrSerialization = errors.New("cache serialization failed")

	// ErrUnknownBackend is returned by New for an unsupported Config.Backend.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrConnClosed is returned when acquiring a Conn whose last reference was released.
	ErrConnClosed = errors.New("cache connection closed")

	// ErrClosed is returned by a local backend used after Close.
	ErrClosed = cacheinfra.ErrStoreClosed
)

// SerializationError reports a value that could not be encoded or decoded.
type SerializationError struct {
	Key string
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	if e.Key == "" {
		return "cache: " + e.Op + " failed: " + e.Err.Error()
	}
	return "cache: " + e.Op + " of key " + e.Key + " failed: " + e.Err.Error()
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// ConfigError reports the first invalid configuration field.
type ConfigError = cacheinfra.ConfigError
