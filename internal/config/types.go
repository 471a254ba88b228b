package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds every server-level option.
type Config struct {
	Server ServerConfig `koanf:"server"`
}

// ServerConfig collects the bootstrap knobs for the polygon service.
type ServerConfig struct {
	Listen  ListenConfig  `koanf:"listen"`
	Logging LoggingConfig `koanf:"logging"`
	Storage StorageConfig `koanf:"storage"`
	Cache   CacheConfig   `koanf:"cache"`
}

// ListenConfig instructs the HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StorageConfig locates the durable polygon store and bounds its round trips.
type StorageConfig struct {
	Path           string `koanf:"path"`
	TimeoutSeconds int    `koanf:"timeoutSeconds"`
}

// CacheConfig selects and tunes the snapshot cache backend. The cache is
// advisory, so the redis settings only matter when backend is "redis".
type CacheConfig struct {
	Backend       string           `koanf:"backend"`
	TTLSeconds    int              `koanf:"ttlSeconds"`
	Key           string           `koanf:"key"`
	TimeoutMillis int              `koanf:"timeoutMillis"`
	Redis         RedisCacheConfig `koanf:"redis"`
}

type RedisCacheConfig struct {
	Address  string              `koanf:"address"`
	Username string              `koanf:"username"`
	Password string              `koanf:"password"`
	DB       int                 `koanf:"db"`
	TLS      RedisTLSCacheConfig `koanf:"tls"`
}

type RedisTLSCacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	CAFile  string `koanf:"caFile"`
}

// TTL returns the snapshot validity window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout returns the per-call cache deadline.
func (c CacheConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Timeout returns the per-call store deadline.
func (c StorageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate rejects configurations the runtime could not honour.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if c.Server.Listen.Port <= 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen.port invalid: %d", c.Server.Listen.Port)
	}
	if strings.TrimSpace(c.Server.Storage.Path) == "" {
		return errors.New("config: server.storage.path required")
	}
	if c.Server.Storage.TimeoutSeconds < 0 {
		return fmt.Errorf("config: server.storage.timeoutSeconds invalid: %d", c.Server.Storage.TimeoutSeconds)
	}
	if c.Server.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: server.cache.ttlSeconds invalid: %d", c.Server.Cache.TTLSeconds)
	}
	if c.Server.Cache.TimeoutMillis < 0 {
		return fmt.Errorf("config: server.cache.timeoutMillis invalid: %d", c.Server.Cache.TimeoutMillis)
	}
	backend := strings.TrimSpace(strings.ToLower(c.Server.Cache.Backend))
	switch backend {
	case "", "memory":
	case "redis":
		if strings.TrimSpace(c.Server.Cache.Redis.Address) == "" {
			return errors.New("config: server.cache.redis.address required for redis backend")
		}
	default:
		return fmt.Errorf("config: server.cache.backend unsupported: %s", c.Server.Cache.Backend)
	}
	return nil
}

// DefaultConfig returns the baseline values. The one-hour snapshot TTL is the
// design value for the cache consistency window.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen: ListenConfig{
				Address: "0.0.0.0",
				Port:    8080,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Storage: StorageConfig{
				Path:           "./polystore.db",
				TimeoutSeconds: 5,
			},
			Cache: CacheConfig{
				Backend:       "memory",
				TTLSeconds:    3600,
				Key:           "polystore:polygons:snapshot",
				TimeoutMillis: 250,
			},
		},
	}
}
