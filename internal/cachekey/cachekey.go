// Package cachekey maps lookup requests onto canonical cache keys.
//
// Coordinates are rounded to a fixed number of decimal places so GPS jitter
// collapses onto one key. Distance keys are directional: A->B and B->A are
// separate entries because drive time is not guaranteed to be symmetric.
package cachekey

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/zeebo/blake3"
)

const (
	// DefaultPrecision rounds coordinates to 4 decimal places (about 11 m).
	DefaultPrecision = 4
	// MinPrecision is the coarsest accepted precision (about 110 m).
	MinPrecision = 3
	// MaxPrecision is the finest accepted precision (about 0.11 m).
	MaxPrecision = 6

	addressPrefix = "addr:"
	// digestHexLen bounds address keys so they fit comfortably in a unique index.
	digestHexLen  = 40
	trailingPunct = ".,;:!?"
)

// Key is the canonical identity of a request in the cache.
type Key struct {
	Value   string
	Kind    model.RequestKind
	Request model.Request
}

// Normalizer produces keys at a fixed coordinate precision. It is safe for
// concurrent use.
type Normalizer struct {
	precision int
	scale     float64
}

// New creates a Normalizer. Precision outside [MinPrecision, MaxPrecision]
// falls back to DefaultPrecision.
func New(precision int) *Normalizer {
	if precision < MinPrecision || precision > MaxPrecision {
		precision = DefaultPrecision
	}
	return &Normalizer{
		precision: precision,
		scale:     math.Pow10(precision),
	}
}

// Precision returns the number of decimal places coordinates are rounded to.
func (n *Normalizer) Precision() int {
	return n.precision
}

// Normalize validates req and returns its canonical key. The returned Key
// carries a normalized copy of the request.
func (n *Normalizer) Normalize(req model.Request) (Key, error) {
	switch req.Kind {
	case model.KindDistance:
		return n.normalizeDistance(req)
	case model.KindGeocode:
		return n.normalizeGeocode(req)
	default:
		return Key{}, model.InvalidRequestf("unknown request kind %q", req.Kind)
	}
}

func (n *Normalizer) normalizeDistance(req model.Request) (Key, error) {
	if req.Origin == nil || req.Destination == nil {
		return Key{}, model.InvalidRequestf("distance request needs origin and destination")
	}
	origin, err := n.roundCoordinate("origin", *req.Origin)
	if err != nil {
		return Key{}, err
	}
	dest, err := n.roundCoordinate("destination", *req.Destination)
	if err != nil {
		return Key{}, err
	}

	var b strings.Builder
	b.Grow(4*(n.precision+6) + 4)
	b.WriteString(n.format(origin.Lat))
	b.WriteByte(',')
	b.WriteString(n.format(origin.Lng))
	b.WriteByte(':')
	b.WriteString(n.format(dest.Lat))
	b.WriteByte(',')
	b.WriteString(n.format(dest.Lng))

	return Key{
		Value:   b.String(),
		Kind:    model.KindDistance,
		Request: model.NewDistanceRequest(origin, dest),
	}, nil
}

func (n *Normalizer) normalizeGeocode(req model.Request) (Key, error) {
	addr := NormalizeAddress(req.Address)
	if addr == "" {
		return Key{}, model.InvalidRequestf("address is empty")
	}
	sum := blake3.Sum256([]byte(addr))
	return Key{
		Value:   addressPrefix + hex.EncodeToString(sum[:])[:digestHexLen],
		Kind:    model.KindGeocode,
		Request: model.NewGeocodeRequest(addr),
	}, nil
}

func (n *Normalizer) roundCoordinate(label string, c model.Coordinate) (model.Coordinate, error) {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return model.Coordinate{}, model.InvalidRequestf("%s has non-finite coordinates", label)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return model.Coordinate{}, model.InvalidRequestf("%s latitude %v out of range", label, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return model.Coordinate{}, model.InvalidRequestf("%s longitude %v out of range", label, c.Lng)
	}
	return model.Coordinate{Lat: n.round(c.Lat), Lng: n.round(c.Lng)}, nil
}

// round is half-away-from-zero; -0 folds to 0 so both signs share a key.
func (n *Normalizer) round(v float64) float64 {
	r := math.Round(v*n.scale) / n.scale
	if r == 0 {
		return 0
	}
	return r
}

func (n *Normalizer) format(v float64) string {
	return strconv.FormatFloat(v, 'f', n.precision, 64)
}

// NormalizeAddress trims, collapses whitespace, lower-cases and strips
// trailing punctuation. It returns "" for blank input.
func NormalizeAddress(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, trailingPunct+" ")
}
