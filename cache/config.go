package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cacherepo/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
)

// Backend names a storage engine.
type Backend string

const (
	BackendRedis Backend = "redis"
	BackendLocal Backend = "local"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend      Backend       `mapstructure:"backend"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	Redis        RedisConfig   `mapstructure:"redis"`
	Local        LocalConfig   `mapstructure:"local"`
}

// RedisConfig carries the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LocalConfig mirrors the process-local store options.
type LocalConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	MaxRetention       time.Duration `mapstructure:"max_retention"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendLocal,
		QueryTimeout: cacheinfra.DefaultQueryTimeout,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Local: convertFromInternal(cacheinfra.DefaultConfig()),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	checks := []struct {
		field string
		value any
		rules []validation.Rule
	}{
		{"Backend", string(c.Backend), []validation.Rule{
			validation.Required,
			validation.In(string(BackendRedis), string(BackendLocal)),
		}},
		{"QueryTimeout", c.QueryTimeout, []validation.Rule{validation.Min(time.Duration(0))}},
		{"Redis.Addr", c.Redis.Addr, []validation.Rule{validation.When(c.Backend == BackendRedis, validation.Required)}},
		{"Redis.DB", c.Redis.DB, []validation.Rule{validation.Min(0)}},
		{"Redis.PoolSize", c.Redis.PoolSize, []validation.Rule{validation.Min(0)}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return &ConfigError{Field: check.field, Message: err.Error()}
		}
	}

	if c.Backend == BackendLocal {
		return c.Local.Validate()
	}
	return nil
}

// Validate checks the local store options.
func (c LocalConfig) Validate() error {
	return c.toInternal().Validate()
}

// Options converts the settings into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
}

// New builds the backend selected by cfg.Backend.
// KeyPrefix and QueryTimeout from cfg are applied before opts.
func New(cfg Config, opts ...Option) (AppCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{WithKeyPrefix(cfg.KeyPrefix), WithQueryTimeout(cfg.QueryTimeout)}
	opts = append(base, opts...)

	switch cfg.Backend {
	case BackendLocal:
		return NewLocal(cfg.Local, opts...)
	case BackendRedis:
		conn := NewConn(cfg.Redis.Options())
		c, err := NewRedis(conn, opts...)
		// the backend holds its own reference from here on
		_ = conn.Close()
		return c, err
	default:
		return nil, ErrUnknownBackend
	}
}

func (c LocalConfig) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxRetention:       c.MaxRetention,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) LocalConfig {
	return LocalConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxRetention:       cfg.MaxRetention,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
