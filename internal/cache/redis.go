package cache

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// DefaultKey is the single global key the snapshot lives under when the
// configuration does not override it.
const DefaultKey = "polystore:polygons:snapshot"

type RedisTLSConfig struct {
	Enabled bool
	CAFile  string
}

type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	Key      string
	TLS      RedisTLSConfig
}

type redisCache struct {
	client valkey.Client
	key    string
}

// NewRedis connects to a Redis-compatible server and verifies it responds
// before handing the cache to callers.
func NewRedis(cfg RedisConfig) (SnapshotCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("cache: redis address required")
	}

	option := valkey.ClientOption{
		InitAddress:       []string{cfg.Address},
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	}

	if cfg.TLS.Enabled {
		tlsConfig := &tls.Config{}
		if cfg.TLS.CAFile != "" {
			caData, err := os.ReadFile(cfg.TLS.CAFile)
			if err != nil {
				return nil, fmt.Errorf("cache: read redis ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caData) {
				return nil, errors.New("cache: redis ca file contains no certificates")
			}
			tlsConfig.RootCAs = pool
		}
		option.TLSConfig = tlsConfig
	}

	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("cache: redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &redisCache{client: client, key: key}, nil
}

func (c *redisCache) Lookup(ctx context.Context) (Snapshot, bool, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(c.key).Build())
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("cache: redis get: %w", err)
	}
	payload, err := resp.AsBytes()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("cache: redis get bytes: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("cache: redis unmarshal: %w", err)
	}
	return snap, true, nil
}

func (c *redisCache) Store(ctx context.Context, snap Snapshot) error {
	if snap.StoredAt.IsZero() {
		snap.StoredAt = time.Now().UTC()
	}
	if snap.ExpiresAt.IsZero() || snap.ExpiresAt.Before(snap.StoredAt) {
		return errors.New("cache: redis snapshot expiry required")
	}
	ttl := time.Until(snap.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: redis marshal: %w", err)
	}
	cmd := c.client.B().Set().Key(c.key).Value(string(payload)).Px(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (c *redisCache) Close(_ context.Context) error {
	c.client.Close()
	return nil
}
