package di

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/cache"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewContainer(t *testing.T) {
	config := cache.DefaultConfig()
	config.Local.Capacity = 1000
	config.Local.NumShards = 16
	config.KeyPrefix = "di"

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.AppCache() == nil {
		t.Error("Container should have a non-nil cache")
	}
	if container.Logger() == nil {
		t.Error("Container should have a non-nil logger")
	}

	storedConfig := container.Config()
	if storedConfig.Local.Capacity != config.Local.Capacity {
		t.Errorf("Expected capacity %d, got %d", config.Local.Capacity, storedConfig.Local.Capacity)
	}
	if storedConfig.KeyPrefix != "di" {
		t.Errorf("Expected key prefix di, got %q", storedConfig.KeyPrefix)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	config := container.Config()
	defaultConfig := cache.DefaultConfig()

	if config.Backend != defaultConfig.Backend {
		t.Errorf("Expected default backend %q, got %q", defaultConfig.Backend, config.Backend)
	}
	if config.Local.Capacity != defaultConfig.Local.Capacity {
		t.Errorf("Expected default capacity %d, got %d", defaultConfig.Local.Capacity, config.Local.Capacity)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalidConfig := cache.DefaultConfig()
	invalidConfig.Local.Capacity = 0

	_, err := NewContainer(invalidConfig)
	if err == nil {
		t.Fatal("NewContainer() should fail with invalid config")
	}

	var cfgErr *cache.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *cache.ConfigError, got %T", err)
	}
	if cfgErr.Field != "Capacity" {
		t.Errorf("expected Capacity field error, got %q", cfgErr.Field)
	}
}

func TestNewContainer_UnknownBackend(t *testing.T) {
	config := cache.DefaultConfig()
	config.Backend = "memcached"

	if _, err := NewContainer(config); err == nil {
		t.Error("NewContainer() should reject an unknown backend")
	}
}

func TestNewContainer_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	config := cache.DefaultConfig()
	config.Backend = cache.BackendRedis
	config.Redis.Addr = mr.Addr()
	config.KeyPrefix = "app"

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	if err := container.AppCache().AddOrUpdateContext(ctx, "k", "v", time.Minute, ""); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}
	if !mr.Exists("app:k") {
		t.Errorf("expected prefixed key app:k in redis, got keys %v", mr.Keys())
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.AppCache() != container.AppCache() {
		t.Error("AppCache() should return the same instance (singleton behavior)")
	}

	users := NewCacheRepo[User](container)
	others := NewCacheRepo[User](container)
	if users.AppCache() != others.AppCache() {
		t.Error("repositories should share the container cache")
	}
}

func TestContainerLoggerIsShared(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	container, err := NewContainerWithDefaults(WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	repo := NewCacheRepo[User](container)
	if _, err := repo.GetAll(context.Background(), false); err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}

	if logs.FilterMessage("cold start, returning empty result").Len() != 1 {
		t.Errorf("expected the repository to log through the container logger, got %v", logs.All())
	}
}

type countingMetrics struct {
	cache.NoopMetrics
	hits, misses int
}

func (m *countingMetrics) Hit()  { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }

func TestContainerMetrics(t *testing.T) {
	metrics := &countingMetrics{}
	container, err := NewContainerWithDefaults(WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	repo := NewCacheRepo[User](container)
	ctx := context.Background()
	if err := repo.AddOrUpdate(ctx, User{ID: "m1"}); err != nil {
		t.Fatalf("AddOrUpdate() failed: %v", err)
	}
	if _, _, err := repo.Get(ctx, "m1"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if _, _, err := repo.Get(ctx, "missing"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	if metrics.hits == 0 || metrics.misses == 0 {
		t.Errorf("expected hits and misses to be recorded, got hits=%d misses=%d", metrics.hits, metrics.misses)
	}
}
