package model

import "time"

// Performance is a snapshot of one lookup service's session counters.
//
// @Description Process-local cache performance since start
type Performance struct {
	Hits          int64   `json:"hits" example:"820"`
	Misses        int64   `json:"misses" example:"180"`
	HitRate       float64 `json:"hit_rate" example:"0.82"`
	TotalLookups  int64   `json:"total_lookups" example:"1000"`
	StoreErrors   int64   `json:"store_errors" example:"0"`
	ProviderCalls int64   `json:"provider_calls" example:"12"`
	Fallbacks     int64   `json:"fallbacks" example:"1"`
} // @name Performance

// UsageDelta is a set of counter increments for one hourly bucket.
type UsageDelta struct {
	Bucket      time.Time
	Hits        int64
	Misses      int64
	StoreErrors int64
}

// Empty reports whether the delta carries no counts.
func (d UsageDelta) Empty() bool {
	return d.Hits == 0 && d.Misses == 0 && d.StoreErrors == 0
}

// UsageBucket truncates t to the hour used for usage counters.
func UsageBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// AggregateStats is the store-level reporting view.
//
// @Description Durable cache statistics over a reporting window
type AggregateStats struct {
	TotalEntries      int64                 `json:"total_entries" example:"10"`
	ExpiredEntries    int64                 `json:"expired_entries" example:"4"`
	StorageSizeBytes  int64                 `json:"storage_size_estimate" example:"20480"`
	EntriesByKind     map[RequestKind]int64 `json:"entries_by_kind"`
	Window            string                `json:"window" example:"24h0m0s"`
	WindowHits        int64                 `json:"window_hits" example:"800"`
	WindowMisses      int64                 `json:"window_misses" example:"200"`
	WindowStoreErrors int64                 `json:"window_store_errors" example:"0"`
	HitRateOverWindow float64               `json:"hit_rate_over_window" example:"0.8"`
} // @name AggregateStats

// WindowLookups is the number of lookups observed in the window.
func (s AggregateStats) WindowLookups() int64 {
	return s.WindowHits + s.WindowMisses
}

// ExpiredFraction is ExpiredEntries / TotalEntries, 0 for an empty store.
func (s AggregateStats) ExpiredFraction() float64 {
	if s.TotalEntries == 0 {
		return 0
	}
	return float64(s.ExpiredEntries) / float64(s.TotalEntries)
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func HitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
