// Package polygon defines the persistent entity of the service and the
// validity rule every write path enforces.
package polygon

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid marks a draft or revision that fails the validity rule. The
// boundary maps it to HTTP 400.
var ErrInvalid = errors.New("invalid polygon data")

// MinVertices is the smallest vertex count a polygon may have. A boundary
// needs strictly more than two points; nothing else about the geometry is
// checked. Self-intersection, coordinate ranges, and ring closure are all
// accepted as-is.
const MinVertices = 3

// Point is one vertex as a [longitude, latitude] pair. The JSON form is a
// bare two-element array, matching what the map client submits.
type Point [2]float64

// Lng returns the longitude component.
func (p Point) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p Point) Lat() float64 { return p[1] }

// UnmarshalJSON insists on exactly two numeric elements. The stdlib default
// would silently truncate longer arrays and zero-fill shorter ones.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate pair must hold exactly 2 values, got %d", len(pair))
	}
	p[0], p[1] = pair[0], pair[1]
	return nil
}

// Polygon is the sole persistent entity. ID and SessionID are fixed at
// creation; Name and Coordinates change only through updates. Coordinate
// order is meaningful and round-trips unchanged.
type Polygon struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Coordinates []Point   `json:"coordinates"`
	SessionID   string    `json:"sessionId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Draft carries the caller-supplied fields for a create. SessionID is an
// opaque capability token; the service never interprets it.
type Draft struct {
	Name        string  `json:"name"`
	Coordinates []Point `json:"coordinates"`
	SessionID   string  `json:"sessionId"`
}

// Validate applies the validity rule to the draft.
func (d Draft) Validate() error {
	return validate(d.Name, d.Coordinates)
}

// Revision carries the mutable fields for an update. SessionID is absent on
// purpose: it is never accepted as input after creation.
type Revision struct {
	Name        string  `json:"name"`
	Coordinates []Point `json:"coordinates"`
}

// Validate applies the validity rule to the revision.
func (r Revision) Validate() error {
	return validate(r.Name, r.Coordinates)
}

func validate(name string, coordinates []Point) error {
	if name == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if len(coordinates) < MinVertices {
		return fmt.Errorf("%w: at least %d vertices required, got %d", ErrInvalid, MinVertices, len(coordinates))
	}
	return nil
}
