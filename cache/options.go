package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Clock provides the current time; useful for deterministic tests.
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures an AppCache.
type Option func(*options)

type options struct {
	ctx          context.Context
	serializer   Serializer
	logger       *zap.Logger
	metrics      Metrics
	clock        Clock
	prefix       string
	queryTimeout time.Duration
}

func applyOptions(opts []Option) options {
	o := options{
		ctx:        context.Background(),
		serializer: MsgpackSerializer{},
		logger:     zap.NewNop(),
		metrics:    NoopMetrics{},
		clock:      systemClock{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithContext sets the context used by the synchronous methods.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithSerializer replaces the default msgpack serializer.
func WithSerializer(s Serializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics installs a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the time source used for ttl deadlines.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithKeyPrefix namespaces every key written by the cache as "<prefix>:<key>".
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithQueryTimeout bounds each Redis command. Ignored by the local backend.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.queryTimeout = d
	}
}
