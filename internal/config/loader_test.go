package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) []string
		wantErr bool
		assert  func(t *testing.T, cfg Config)
	}{
		{
			name:  "returns defaults when no overrides",
			setup: func(t *testing.T) []string { return nil },
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 8080, cfg.Server.Listen.Port)
				require.Equal(t, "memory", cfg.Server.Cache.Backend)
				require.Equal(t, 3600, cfg.Server.Cache.TTLSeconds)
				require.Equal(t, "./polystore.db", cfg.Server.Storage.Path)
			},
		},
		{
			name: "merges yaml file overrides",
			setup: func(t *testing.T) []string {
				dir := t.TempDir()
				path := filepath.Join(dir, "server.yaml")
				body := "server:\n  listen:\n    port: 9090\n  cache:\n    ttlSeconds: 60\n"
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 9090, cfg.Server.Listen.Port)
				require.Equal(t, 60, cfg.Server.Cache.TTLSeconds)
			},
		},
		{
			name: "merges json file overrides",
			setup: func(t *testing.T) []string {
				dir := t.TempDir()
				path := filepath.Join(dir, "server.json")
				body := `{"server": {"storage": {"path": "/tmp/polygons.db"}}}`
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "/tmp/polygons.db", cfg.Server.Storage.Path)
			},
		},
		{
			name: "merges toml file overrides",
			setup: func(t *testing.T) []string {
				dir := t.TempDir()
				path := filepath.Join(dir, "server.toml")
				body := "[server.listen]\nport = 7070\n"
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 7070, cfg.Server.Listen.Port)
			},
		},
		{
			name: "env overrides file",
			setup: func(t *testing.T) []string {
				dir := t.TempDir()
				path := filepath.Join(dir, "server.yaml")
				body := "server:\n  listen:\n    port: 9090\n"
				require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
				t.Setenv("POLYSTORE_SERVER__LISTEN__PORT", "9191")
				t.Setenv("POLYSTORE_SERVER__CACHE__TTLSECONDS", "120")
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 9191, cfg.Server.Listen.Port)
				require.Equal(t, 120, cfg.Server.Cache.TTLSeconds)
			},
		},
		{
			name: "missing file fails",
			setup: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "absent.yaml")}
			},
			wantErr: true,
		},
		{
			name: "unsupported extension fails",
			setup: func(t *testing.T) []string {
				dir := t.TempDir()
				path := filepath.Join(dir, "server.ini")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
				return []string{path}
			},
			wantErr: true,
		},
		{
			name: "invalid backend fails validation",
			setup: func(t *testing.T) []string {
				t.Setenv("POLYSTORE_SERVER__CACHE__BACKEND", "memcached")
				return nil
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files := tc.setup(t)
			loader := NewLoader("POLYSTORE", files...)
			cfg, err := loader.Load(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.assert(t, cfg)
		})
	}
}

func TestLoaderRedisBackendRequiresAddress(t *testing.T) {
	t.Setenv("POLYSTORE_SERVER__CACHE__BACKEND", "redis")
	loader := NewLoader("POLYSTORE")
	_, err := loader.Load(context.Background())
	require.Error(t, err)

	t.Setenv("POLYSTORE_SERVER__CACHE__REDIS__ADDRESS", "127.0.0.1:6379")
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "redis", cfg.Server.Cache.Backend)
	require.Equal(t, "127.0.0.1:6379", cfg.Server.Cache.Redis.Address)
}
