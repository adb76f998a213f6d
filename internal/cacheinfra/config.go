package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the process-local store.
type Config struct {
	// Capacity defines the maximum number of plain keys the sturdyc client holds.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// MaxRetention bounds how long a plain key may live inside sturdyc, even
	// when it was written without a ttl. Per-key ttls are tracked separately
	// and enforced on read.
	MaxRetention time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the client reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc scans for entries past MaxRetention.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		MaxRetention:       364 * 24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, MaxRetention and EvictionPercentage are constructor
// arguments of sturdyc.New and are not included here.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
// The first failing field is reported as a *ConfigError.
func (c Config) Validate() error {
	checks := []struct {
		field string
		value any
		rules []validation.Rule
	}{
		{"Capacity", c.Capacity, []validation.Rule{validation.Required, validation.Min(1)}},
		{"NumShards", c.NumShards, []validation.Rule{validation.Required, validation.Min(1)}},
		{"MaxRetention", c.MaxRetention, []validation.Rule{validation.Required, validation.Min(time.Duration(1))}},
		{"EvictionPercentage", c.EvictionPercentage, []validation.Rule{validation.Required, validation.Min(1), validation.Max(100)}},
		{"EvictionInterval", c.EvictionInterval, []validation.Rule{validation.Min(time.Duration(0))}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return &ConfigError{Field: check.field, Message: err.Error()}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
