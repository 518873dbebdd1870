package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/canonical"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/freshness"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

const (
	defaultServerAddress    = ":8070"
	defaultServerTimeout    = 15 * time.Second
	defaultPageTimeout      = 15 * time.Second
	defaultMaxRedirects     = 10
	defaultMaxBodyBytes     = 10 * 1024 * 1024
	defaultRedisAddress     = "localhost:6379"
	defaultSocialPageSize   = 200
	defaultSocialMaxPages   = 5
	defaultRequestRateLimit = 0
)

// Load reads configuration. path names an explicit file; when empty the
// file is searched for as config.yml in ., ./config and
// $HOME/.link-aggregator, and a missing file is not an error. Environment
// variables override file values (LOG_LEVEL for logger.level and so on).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setupViper(v, path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &LoadError{File: fileName(v, path), Err: err}
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, &LoadError{File: fileName(v, path), Err: err}
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.link-aggregator")
}

func fileName(v *viper.Viper, path string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	if path != "" {
		return path
	}
	return "config.yml"
}

// setDefaults registers every scalar key so environment overrides reach
// AllSettings even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.development", false)
	v.SetDefault("logger.output_paths", []string{"stdout"})

	v.SetDefault("redis.address", defaultRedisAddress)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", store.DefaultKeyPrefix)
	v.SetDefault("redis.pool_size", store.DefaultPoolSize)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.dial_timeout", store.DefaultDialTimeout)
	v.SetDefault("redis.read_timeout", store.DefaultReadTimeout)
	v.SetDefault("redis.write_timeout", store.DefaultWriteTimeout)

	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)

	v.SetDefault("fetcher.timeout", defaultPageTimeout)
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.max_redirects", defaultMaxRedirects)
	v.SetDefault("fetcher.max_body_bytes", defaultMaxBodyBytes)
	v.SetDefault("fetcher.requests_per_second", defaultRequestRateLimit)
	v.SetDefault("fetcher.burst", 1)

	v.SetDefault("orchestrator.concurrency", orchestrator.DefaultConcurrency)
	v.SetDefault("orchestrator.list_timeout", orchestrator.DefaultListTimeout)
	v.SetDefault("orchestrator.ignore_words", []string{})
	v.SetDefault("orchestrator.platform_hosts", orchestrator.DefaultPlatformHosts)

	v.SetDefault("run.source_concurrency", coordinator.DefaultSourceConcurrency)
	v.SetDefault("run.lock_ttl", store.DefaultLockTTL)

	v.SetDefault("freshness.window", freshness.DefaultWindow)
	v.SetDefault("freshness.rank_bonus", freshness.DefaultRankBonus)

	v.SetDefault("social.base_url", "")
	v.SetDefault("social.bearer_token", "")
	v.SetDefault("social.page_size", defaultSocialPageSize)
	v.SetDefault("social.max_pages", defaultSocialMaxPages)

	v.SetDefault("schedule", "")
}

func decode(settings map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			junkRuleHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err = decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &cfg, nil
}

var junkRuleType = reflect.TypeOf(canonical.JunkRule{})

// junkRuleHook accepts a bare parameter name as a global junk rule.
func junkRuleHook(from, to reflect.Type, data any) (any, error) {
	if to != junkRuleType || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]any{"params": []string{data.(string)}}, nil
}
