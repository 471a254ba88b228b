// Package cache provides the volatile snapshot accelerator sitting in front
// of the durable polygon store. A snapshot is a serialized copy of the whole
// listing under one global key. The cache is strictly advisory: it may be
// stale within its TTL, it may be unavailable, and it is never the only copy
// of truth.
package cache

import (
	"context"
	"time"

	"github.com/mapsketch/polystore/internal/polygon"
)

// Snapshot is one full-listing copy with its validity window.
type Snapshot struct {
	Polygons  []polygon.Polygon `json:"polygons"`
	StoredAt  time.Time         `json:"storedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// SnapshotCache holds at most one listing snapshot. Lookup reports a miss for
// absent or expired snapshots; errors indicate the cache layer itself failed
// and callers are expected to fall back to the store.
type SnapshotCache interface {
	Lookup(ctx context.Context) (Snapshot, bool, error)
	Store(ctx context.Context, snap Snapshot) error
	Close(ctx context.Context) error
}
