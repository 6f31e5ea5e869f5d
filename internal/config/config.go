package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Tenancy     TenancyConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	Outbox      OutboxConfig
	Queue       QueueConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

type TenancyConfig struct {
	Header string
}

type CacheConfig struct {
	Enabled    bool
	TTLSeconds int
	RedisAddr  string
}

type RateLimitConfig struct {
	Enabled       bool
	Limit         int
	WindowSeconds int
	RedisAddr     string
}

type OutboxConfig struct {
	Brokers []string
	Source  string
}

type QueueConfig struct {
	RedisAddr   string
	Concurrency int
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("fieldline_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("fieldline_port", 8080)
	v.SetDefault("fieldline_db_path", "data/fieldline")
	v.SetDefault("tenant_header", "X-Org-Id")
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", 60)
	v.SetDefault("redis_addr", "")
	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit", 120)
	v.SetDefault("rate_window", 60)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("outbox_source", "fieldline/api")
	v.SetDefault("queue_redis_addr", "")
	v.SetDefault("queue_concurrency", 10)

	port := v.GetInt("fieldline_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid FIELDLINE_PORT: %d", port)
	}

	header := strings.TrimSpace(v.GetString("tenant_header"))
	if header == "" {
		header = "X-Org-Id"
	}

	ttl := v.GetInt("cache_ttl")
	if ttl <= 0 {
		ttl = 60
	}

	limit := v.GetInt("rate_limit")
	if limit <= 0 {
		limit = 120
	}
	window := v.GetInt("rate_window")
	if window <= 0 {
		window = 60
	}

	concurrency := v.GetInt("queue_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	cfg := Config{
		Environment: resolveEnvironment(v),
		Server:      ServerConfig{Port: port},
		Database: DatabaseConfig{
			Path: strings.TrimSpace(v.GetString("fieldline_db_path")),
		},
		Tenancy: TenancyConfig{Header: header},
		Cache: CacheConfig{
			Enabled:    v.GetBool("cache_enabled"),
			TTLSeconds: ttl,
			RedisAddr:  strings.TrimSpace(v.GetString("redis_addr")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("rate_limit_enabled"),
			Limit:         limit,
			WindowSeconds: window,
			RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		},
		Outbox: OutboxConfig{
			Brokers: splitBrokers(v.GetString("kafka_brokers")),
			Source:  strings.TrimSpace(v.GetString("outbox_source")),
		},
		Queue: QueueConfig{
			RedisAddr:   strings.TrimSpace(v.GetString("queue_redis_addr")),
			Concurrency: concurrency,
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/fieldline"
	}

	return cfg, nil
}

func splitBrokers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"fieldline_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// CacheTTL returns the response cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// RateWindow returns the rate limiter window as a duration.
func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
