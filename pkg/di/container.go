package di

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-cacherepo/cache"
	"github.com/goliatone/go-cacherepo/repositorycache"
	"go.uber.org/zap"
)

// Container provides dependency injection for cache related components.
// It owns a single AppCache built from the configuration and hands it to
// every CacheRepo and CachedRepository created through it.
type Container struct {
	appCache cache.AppCache
	config   cache.Config
	logger   *zap.Logger
	metrics  cache.Metrics
}

// Option customises a Container before its AppCache is built.
type Option func(*Container)

// WithLogger sets the logger shared by the cache and the repositories.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink passed to the cache backend.
func WithMetrics(m cache.Metrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewContainer creates a new DI container with the provided cache configuration.
// The configuration is validated and the selected backend is created eagerly.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		config:  config,
		logger:  zap.NewNop(),
		metrics: cache.NoopMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	appCache, err := cache.New(config, cache.WithLogger(c.logger), cache.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}
	c.appCache = appCache
	return c, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
// This is a convenience constructor for typical use cases where custom configuration
// is not required.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// AppCache returns the singleton cache backend.
func (c *Container) AppCache() cache.AppCache {
	return c.appCache
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the cache backend.
func (c *Container) Close() error {
	return c.appCache.Close()
}

// NewCacheRepo creates a CacheRepo for T over the container cache.
// The container logger is applied before opts.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCacheRepo[User](container, repositorycache.WithCustomIndex("email", byEmail))
func NewCacheRepo[T any](container *Container, opts ...repositorycache.Option[T]) *repositorycache.CacheRepo[T] {
	all := append([]repositorycache.Option[T]{repositorycache.WithLogger[T](container.logger)}, opts...)
	return repositorycache.NewCacheRepo[T](container.appCache, all...)
}

// NewCachedRepository creates a new cached repository that wraps the provided base repository.
// It is a drop-in replacement for base backed by a CacheRepo built with opts.
//
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New[T](base, NewCacheRepo[T](container, opts...))
}
