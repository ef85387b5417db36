// README: Common value objects shared across modules (identifiers, locations).
package types

// ID is an opaque identifier for riders, drivers, vehicles and rides.
type ID string

func (id ID) String() string { return string(id) }

// Point is a WGS84 position with an optional human-readable label.
type Point struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}
