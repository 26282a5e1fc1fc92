package model

import "time"

// Accuracy levels reported for geocode results, coarsest last.
const (
	AccuracyRooftop            = "rooftop"
	AccuracyRangeInterpolation = "range_interpolation"
	AccuracyGeometricCenter    = "geometric_center"
	AccuracyApproximate        = "approximate"
)

// DistancePayload is the canonical result of a distance lookup.
//
// @Description Drive distance and duration between two points
type DistancePayload struct {
	DurationSeconds float64 `bson:"duration_seconds" json:"duration_seconds" example:"5640"`
	DistanceMeters  float64 `bson:"distance_meters" json:"distance_meters" example:"142300"`
	DurationText    string  `bson:"duration_text,omitempty" json:"duration_text,omitempty" example:"1 hour 34 mins"`
	DistanceText    string  `bson:"distance_text,omitempty" json:"distance_text,omitempty" example:"88.4 mi"`
} // @name DistancePayload

// GeocodePayload is the canonical result of an address lookup.
//
// @Description Coordinates resolved for an address
type GeocodePayload struct {
	Latitude         float64 `bson:"latitude" json:"latitude" example:"33.2000"`
	Longitude        float64 `bson:"longitude" json:"longitude" example:"-117.2425"`
	Accuracy         string  `bson:"accuracy" json:"accuracy" example:"rooftop"`
	Confidence       float64 `bson:"confidence" json:"confidence" example:"0.95"`
	FormattedAddress string  `bson:"formatted_address" json:"formatted_address" example:"145 Hannalei Dr, Vista, CA 92083"`
	Source           string  `bson:"source" json:"source" example:"geocodio"`
} // @name GeocodePayload

// Payload holds exactly one of the kind-specific result shapes.
type Payload struct {
	Distance *DistancePayload `bson:"distance,omitempty" json:"distance,omitempty"`
	Geocode  *GeocodePayload  `bson:"geocode,omitempty" json:"geocode,omitempty"`
}

// Kind reports which variant is populated, or "" when empty.
func (p Payload) Kind() RequestKind {
	switch {
	case p.Distance != nil:
		return KindDistance
	case p.Geocode != nil:
		return KindGeocode
	default:
		return ""
	}
}

// CacheEntry is the unit of caching. Key and Kind together identify it.
type CacheEntry struct {
	Key            string      `bson:"key" json:"key"`
	Kind           RequestKind `bson:"request_kind" json:"request_kind"`
	Request        Request     `bson:"request" json:"request"`
	Payload        Payload     `bson:"result_payload" json:"result_payload"`
	SourceProvider string      `bson:"source_provider" json:"source_provider"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	ExpiresAt      time.Time   `bson:"expires_at" json:"expires_at"`
	HitCount       int64       `bson:"hit_count" json:"hit_count"`
	LastHitAt      *time.Time  `bson:"last_hit_at,omitempty" json:"last_hit_at,omitempty"`
}

// NewCacheEntry stamps a fresh entry created at now that lives for ttl.
func NewCacheEntry(key string, req Request, payload Payload, provider string, now time.Time, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Key:            key,
		Kind:           req.Kind,
		Request:        req,
		Payload:        payload,
		SourceProvider: provider,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// FreshAt reports whether the entry may be served at t (t < ExpiresAt).
func (e *CacheEntry) FreshAt(t time.Time) bool {
	return t.Before(e.ExpiresAt)
}

// HitIncrement is a pending durable hit_count bump for one entry.
type HitIncrement struct {
	Key   string
	Kind  RequestKind
	Count int64
	At    time.Time
}

// Result is what callers of the lookup service receive.
//
// @Description Lookup result, either served from cache or freshly resolved
type Result struct {
	Key       string      `json:"key"`
	Kind      RequestKind `json:"request_kind"`
	Payload   Payload     `json:"result"`
	Source    string      `json:"source_provider"`
	Cached    bool        `json:"cached"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
} // @name LookupResult

// ResultFromEntry converts a stored entry into a caller-facing result.
func ResultFromEntry(e *CacheEntry, cached bool) *Result {
	return &Result{
		Key:       e.Key,
		Kind:      e.Kind,
		Payload:   e.Payload,
		Source:    e.SourceProvider,
		Cached:    cached,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	}
}

// BatchResult is one position of a batch lookup; exactly one of Result or Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}
