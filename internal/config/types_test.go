package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Listen.Port = 70000 },
			wantErr: "listen.port",
		},
		{
			name:    "missing storage path",
			mutate:  func(cfg *Config) { cfg.Server.Storage.Path = "  " },
			wantErr: "storage.path",
		},
		{
			name:    "negative storage timeout",
			mutate:  func(cfg *Config) { cfg.Server.Storage.TimeoutSeconds = -1 },
			wantErr: "timeoutSeconds",
		},
		{
			name:    "negative ttl",
			mutate:  func(cfg *Config) { cfg.Server.Cache.TTLSeconds = -1 },
			wantErr: "ttlSeconds",
		},
		{
			name:    "negative cache timeout",
			mutate:  func(cfg *Config) { cfg.Server.Cache.TimeoutMillis = -1 },
			wantErr: "timeoutMillis",
		},
		{
			name:    "unsupported backend",
			mutate:  func(cfg *Config) { cfg.Server.Cache.Backend = "memcached" },
			wantErr: "backend unsupported",
		},
		{
			name:    "redis backend without address",
			mutate:  func(cfg *Config) { cfg.Server.Cache.Backend = "redis" },
			wantErr: "redis.address",
		},
		{
			name: "redis backend with address",
			mutate: func(cfg *Config) {
				cfg.Server.Cache.Backend = "redis"
				cfg.Server.Cache.Redis.Address = "127.0.0.1:6379"
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, time.Hour, cfg.Server.Cache.TTL())
	require.Equal(t, 250*time.Millisecond, cfg.Server.Cache.Timeout())
	require.Equal(t, 5*time.Second, cfg.Server.Storage.Timeout())
}
