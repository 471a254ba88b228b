// Package service implements the cache-aside protocol between the durable
// polygon store and the volatile snapshot cache.
//
// The store is always written first and is always authoritative. After every
// successful mutation the full listing is recomputed and written back into
// the cache under its single global key with a fresh TTL. Reads consult the
// cache first and fall back to the store on a miss or a cache failure. Cache
// errors of any kind are logged, counted, and swallowed; they never change
// the outcome reported to the caller.
//
// Two concurrent mutations each write their own post-mutation listing and
// the last refill wins, so a cache hit only ever means "no older than TTL",
// never "latest".
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mapsketch/polystore/internal/cache"
	"github.com/mapsketch/polystore/internal/metrics"
	"github.com/mapsketch/polystore/internal/polygon"
	"github.com/mapsketch/polystore/internal/storage"
)

const (
	// DefaultTTL is the snapshot validity window.
	DefaultTTL = time.Hour
	// DefaultStoreTimeout bounds each durable store round trip.
	DefaultStoreTimeout = 5 * time.Second
	// DefaultCacheTimeout bounds each cache round trip. A slow cache is
	// treated the same as a broken one.
	DefaultCacheTimeout = 250 * time.Millisecond
)

// Options tunes the cache-aside behaviour. Zero values fall back to the
// defaults above.
type Options struct {
	TTL          time.Duration
	StoreTimeout time.Duration
	CacheTimeout time.Duration
	Metrics      *metrics.Recorder
}

// Service fronts the polygon store with the advisory snapshot cache.
type Service struct {
	store   storage.PolygonStore
	cache   cache.SnapshotCache
	logger  *slog.Logger
	metrics *metrics.Recorder

	ttl          time.Duration
	storeTimeout time.Duration
	cacheTimeout time.Duration
}

// New wires the store and cache together. Both are injected so tests can
// substitute fakes for either side.
func New(store storage.PolygonStore, snapCache cache.SnapshotCache, logger *slog.Logger, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = DefaultCacheTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		cache:        snapCache,
		logger:       logger.With(slog.String("component", "polygon_service")),
		metrics:      opts.Metrics,
		ttl:          opts.TTL,
		storeTimeout: opts.StoreTimeout,
		cacheTimeout: opts.CacheTimeout,
	}
}

// Create persists a new polygon, then refreshes the listing snapshot.
func (s *Service) Create(ctx context.Context, draft polygon.Draft) (polygon.Polygon, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	created, err := s.store.Create(sctx, draft)
	if err != nil {
		return polygon.Polygon{}, err
	}
	s.refill(ctx, "create")
	return created, nil
}

// List returns the global listing, served from the snapshot when one is
// present and unexpired, otherwise from the store with a best-effort refill.
func (s *Service) List(ctx context.Context) ([]polygon.Polygon, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	start := time.Now()
	snap, ok, err := s.cache.Lookup(cctx)
	cancel()
	switch {
	case err != nil:
		s.metrics.ObserveCacheLookup(metrics.CacheLookupError, time.Since(start))
		s.logger.Warn("snapshot lookup failed, falling back to store", slog.Any("error", err))
	case ok:
		s.metrics.ObserveCacheLookup(metrics.CacheLookupHit, time.Since(start))
		return snap.Polygons, nil
	default:
		s.metrics.ObserveCacheLookup(metrics.CacheLookupMiss, time.Since(start))
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	listing, err := s.store.List(sctx)
	if err != nil {
		return nil, err
	}
	s.writeSnapshot(ctx, listing, "list")
	return listing, nil
}

// Update mutates one polygon, then refreshes the listing snapshot.
func (s *Service) Update(ctx context.Context, id int64, rev polygon.Revision) (polygon.Polygon, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	updated, err := s.store.Update(sctx, id, rev)
	if err != nil {
		return polygon.Polygon{}, err
	}
	s.refill(ctx, "update")
	return updated, nil
}

// Delete removes one polygon, then refreshes the listing snapshot.
func (s *Service) Delete(ctx context.Context, id int64) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Delete(sctx, id); err != nil {
		return err
	}
	s.refill(ctx, "delete")
	return nil
}

// refill recomputes the full listing and writes it into the cache. The
// mutation that triggered it has already committed, so every failure in here
// is observed and dropped.
func (s *Service) refill(ctx context.Context, operation string) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	listing, err := s.store.List(sctx)
	cancel()
	if err != nil {
		s.logger.Warn("snapshot refill skipped, listing failed",
			slog.String("operation", operation),
			slog.Any("error", err))
		return
	}
	s.writeSnapshot(ctx, listing, operation)
}

// writeSnapshot stores the listing under the global key with a fresh TTL.
// Failures are swallowed after being observed.
func (s *Service) writeSnapshot(ctx context.Context, listing []polygon.Polygon, operation string) {
	now := time.Now().UTC()
	snap := cache.Snapshot{
		Polygons:  listing,
		StoredAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()
	start := time.Now()
	if err := s.cache.Store(cctx, snap); err != nil {
		s.metrics.ObserveCacheStore(metrics.CacheStoreError, time.Since(start))
		s.logger.Warn("snapshot write failed",
			slog.String("operation", operation),
			slog.Any("error", err))
		return
	}
	s.metrics.ObserveCacheStore(metrics.CacheStoreStored, time.Since(start))
}
