package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/cache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CACHECTL"

// loadConfig merges defaults, the optional config file, CACHECTL_* env vars
// and command line flags into a cache.Config.
func loadConfig(cmd *cobra.Command) (cache.Config, error) {
	vip := viper.New()

	def := cache.DefaultConfig()
	vip.SetDefault("backend", string(def.Backend))
	vip.SetDefault("key_prefix", def.KeyPrefix)
	vip.SetDefault("query_timeout", def.QueryTimeout)
	vip.SetDefault("redis.addr", def.Redis.Addr)
	vip.SetDefault("redis.username", def.Redis.Username)
	vip.SetDefault("redis.password", def.Redis.Password)
	vip.SetDefault("redis.db", def.Redis.DB)
	vip.SetDefault("redis.pool_size", def.Redis.PoolSize)
	vip.SetDefault("local.capacity", def.Local.Capacity)
	vip.SetDefault("local.num_shards", def.Local.NumShards)
	vip.SetDefault("local.max_retention", def.Local.MaxRetention)
	vip.SetDefault("local.eviction_percentage", def.Local.EvictionPercentage)
	vip.SetDefault("local.eviction_interval", def.Local.EvictionInterval)

	vip.SetEnvPrefix(envPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	flags := map[string]string{
		"backend":    "backend",
		"redis.addr": "redis-addr",
		"key_prefix": "prefix",
	}
	for key, flag := range flags {
		if err := vip.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return cache.Config{}, errors.Wrapf(err, "binding flag --%s", flag)
		}
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		vip.SetConfigFile(path)
		vip.SetConfigType("yaml")
		if err := vip.ReadInConfig(); err != nil {
			return cache.Config{}, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	var cfg cache.Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return cache.Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}
