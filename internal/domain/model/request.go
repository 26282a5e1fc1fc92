// Package model defines the core domain entities for the geo cache service.
package model

import "fmt"

// RequestKind distinguishes distance-matrix lookups from address geocoding.
// Each kind has its own payload shape and TTL.
type RequestKind string

const (
	// KindDistance is an (origin, destination) drive distance/duration lookup.
	KindDistance RequestKind = "DISTANCE"
	// KindGeocode is a free-text address to coordinate lookup.
	KindGeocode RequestKind = "GEOCODE"
)

// Valid reports whether k is a known request kind.
func (k RequestKind) Valid() bool {
	return k == KindDistance || k == KindGeocode
}

// String returns the kind as stored in the backing store.
func (k RequestKind) String() string {
	return string(k)
}

// Coordinate is a WGS84 latitude/longitude pair.
//
// @Description Geographic point in decimal degrees
type Coordinate struct {
	Lat float64 `bson:"lat" json:"lat" example:"32.7157"`
	Lng float64 `bson:"lng" json:"lng" example:"-117.1611"`
} // @name Coordinate

// String formats the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// Request is a single lookup: either a distance between two points or an address.
type Request struct {
	Kind        RequestKind `bson:"kind" json:"kind"`
	Origin      *Coordinate `bson:"origin,omitempty" json:"origin,omitempty"`
	Destination *Coordinate `bson:"destination,omitempty" json:"destination,omitempty"`
	Address     string      `bson:"address,omitempty" json:"address,omitempty"`
}

// NewDistanceRequest builds a directional distance request from origin to destination.
func NewDistanceRequest(origin, destination Coordinate) Request {
	return Request{
		Kind:        KindDistance,
		Origin:      &origin,
		Destination: &destination,
	}
}

// NewGeocodeRequest builds an address geocoding request.
func NewGeocodeRequest(address string) Request {
	return Request{
		Kind:    KindGeocode,
		Address: address,
	}
}

// String returns a short human-readable description used in logs.
func (r Request) String() string {
	switch r.Kind {
	case KindDistance:
		if r.Origin == nil || r.Destination == nil {
			return "distance(<incomplete>)"
		}
		return fmt.Sprintf("distance(%s -> %s)", r.Origin, r.Destination)
	case KindGeocode:
		return fmt.Sprintf("geocode(%q)", r.Address)
	default:
		return fmt.Sprintf("unknown(%s)", r.Kind)
	}
}
