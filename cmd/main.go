package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mapsketch/polystore/internal/cache"
	"github.com/mapsketch/polystore/internal/config"
	"github.com/mapsketch/polystore/internal/logging"
	"github.com/mapsketch/polystore/internal/metrics"
	"github.com/mapsketch/polystore/internal/server"
	"github.com/mapsketch/polystore/internal/service"
	"github.com/mapsketch/polystore/internal/storage/sqlite"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envPrefix  = flag.String("env-prefix", "POLYSTORE", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	store, err := sqlite.Open(cfg.Server.Storage.Path)
	if err != nil {
		logger.Error("polygon store initialization failed",
			slog.String("path", cfg.Server.Storage.Path),
			slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("polygon store shutdown failed", slog.Any("error", err))
		}
	}()

	cacheLogger := logger.With(slog.String("component", "cache_factory"))
	snapshotCache := buildSnapshotCache(cacheLogger, cfg.Server.Cache)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := snapshotCache.Close(shutdownCtx); err != nil {
			logger.Error("cache shutdown failed", slog.Any("error", err))
		}
	}()

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	svc := service.New(store, snapshotCache, logger, service.Options{
		TTL:          cfg.Server.Cache.TTL(),
		StoreTimeout: cfg.Server.Storage.Timeout(),
		CacheTimeout: cfg.Server.Cache.Timeout(),
		Metrics:      metricsRecorder,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsRecorder.Handler())
	mux.Handle("/", server.NewHandler(svc, logger, metricsRecorder))

	srv, err := server.New(cfg, logger, mux)
	if err != nil {
		logger.Error("unable to construct server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// buildSnapshotCache never fails the boot: the cache is advisory, so a broken
// redis backend degrades to the in-process cache instead of stopping startup.
func buildSnapshotCache(logger *slog.Logger, cfg config.CacheConfig) cache.SnapshotCache {
	ttl := cfg.TTL()
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", "memory":
		if logger != nil {
			logger.Info("using memory snapshot cache", slog.Duration("ttl", ttl))
		}
		return cache.NewMemory(ttl)
	case "redis":
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Key,
			TLS: cache.RedisTLSConfig{
				Enabled: cfg.Redis.TLS.Enabled,
				CAFile:  cfg.Redis.TLS.CAFile,
			},
		})
		if err != nil {
			if logger != nil {
				logger.Error("redis cache initialization failed", slog.Any("error", err))
				logger.Info("falling back to memory cache")
			}
			return cache.NewMemory(ttl)
		}
		if logger != nil {
			logger.Info("using redis snapshot cache", slog.String("address", cfg.Redis.Address))
		}
		return redisCache
	default:
		if logger != nil {
			logger.Warn("unsupported cache backend, defaulting to memory", slog.String("backend", cfg.Backend))
		}
		return cache.NewMemory(ttl)
	}
}
