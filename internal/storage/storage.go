// Package storage defines the persistence contract for polygon records.
package storage

import (
	"context"
	"errors"

	"github.com/mapsketch/polystore/internal/polygon"
)

// ErrNotFound indicates the requested polygon id does not exist.
var ErrNotFound = errors.New("polygon not found")

// PolygonStore owns the durable copy of every polygon. It is the sole source
// of truth; any caching layered on top is advisory. Errors other than
// polygon.ErrInvalid and ErrNotFound are transient store failures.
type PolygonStore interface {
	// Create persists a new record with a freshly assigned id. Ids are never
	// reused, even after deletion.
	Create(ctx context.Context, draft polygon.Draft) (polygon.Polygon, error)
	// List returns every polygon across all sessions in insertion order.
	List(ctx context.Context) ([]polygon.Polygon, error)
	// Update replaces name and coordinates. SessionID is immutable.
	Update(ctx context.Context, id int64, rev polygon.Revision) (polygon.Polygon, error)
	// Delete removes the record permanently. No tombstone remains.
	Delete(ctx context.Context, id int64) error
	// Close releases the underlying connection.
	Close() error
}
