package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mapsketch/polystore/internal/polygon"
)

type memoryCache struct {
	ttl time.Duration

	mu   sync.Mutex
	snap Snapshot
	set  bool
}

// NewMemory returns an in-process snapshot cache. Expiry is checked on
// lookup; there is no background sweeper because only one slot exists.
func NewMemory(ttl time.Duration) SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memoryCache{ttl: ttl}
}

func (c *memoryCache) Lookup(_ context.Context) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return Snapshot{}, false, nil
	}
	if time.Now().After(c.snap.ExpiresAt) {
		c.snap = Snapshot{}
		c.set = false
		return Snapshot{}, false, nil
	}
	return cloneSnapshot(c.snap), true, nil
}

func (c *memoryCache) Store(_ context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.StoredAt.IsZero() {
		snap.StoredAt = time.Now().UTC()
	}
	if snap.ExpiresAt.IsZero() || snap.ExpiresAt.Before(snap.StoredAt) {
		snap.ExpiresAt = snap.StoredAt.Add(c.ttl)
	}
	c.snap = cloneSnapshot(snap)
	c.set = true
	return nil
}

func (c *memoryCache) Close(_ context.Context) error {
	return nil
}

// cloneSnapshot copies the listing and every coordinate ring so callers
// cannot mutate the cached copy through the returned slices.
func cloneSnapshot(in Snapshot) Snapshot {
	out := Snapshot{StoredAt: in.StoredAt, ExpiresAt: in.ExpiresAt}
	if in.Polygons == nil {
		return out
	}
	out.Polygons = make([]polygon.Polygon, len(in.Polygons))
	for i, record := range in.Polygons {
		cloned := record
		if record.Coordinates != nil {
			cloned.Coordinates = make([]polygon.Point, len(record.Coordinates))
			copy(cloned.Coordinates, record.Coordinates)
		}
		out.Polygons[i] = cloned
	}
	return out
}
