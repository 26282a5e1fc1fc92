package service

import (
	"fmt"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// Recommendation thresholds.
const (
	// DefaultTargetHitRate is the hit rate below which warming is suggested.
	DefaultTargetHitRate = 0.70
	// DefaultMaxStorageBytes is the storage size above which shorter TTLs are suggested.
	DefaultMaxStorageBytes = 256 << 20
	// DefaultMaxExpiredFraction is the expired share above which more frequent
	// sweeps are suggested.
	DefaultMaxExpiredFraction = 0.25
)

// Thresholds drive the recommendation rules.
type Thresholds struct {
	TargetHitRate      float64
	MaxStorageBytes    int64
	MaxExpiredFraction float64
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TargetHitRate:      DefaultTargetHitRate,
		MaxStorageBytes:    DefaultMaxStorageBytes,
		MaxExpiredFraction: DefaultMaxExpiredFraction,
	}
}

// Recommend turns aggregate stats into human-readable suggestions. Rules:
//   - no lookups in the window: informational note, hit-rate rule skipped
//   - hit rate below TargetHitRate: warm known hot routes
//   - storage above MaxStorageBytes: shorten TTLs
//   - expired fraction above MaxExpiredFraction: sweep more often
//   - store errors in the window: check store health
func Recommend(stats model.AggregateStats, t Thresholds) []string {
	recs := []string{}

	if stats.WindowLookups() == 0 {
		recs = append(recs, fmt.Sprintf("No lookups recorded in the last %s; hit rate cannot be assessed", stats.Window))
	} else if stats.HitRateOverWindow < t.TargetHitRate {
		recs = append(recs, fmt.Sprintf(
			"Hit rate %.1f%% is below the %.0f%% target; warm the cache with known high-traffic routes",
			stats.HitRateOverWindow*100, t.TargetHitRate*100))
	}

	if t.MaxStorageBytes > 0 && stats.StorageSizeBytes > t.MaxStorageBytes {
		recs = append(recs, fmt.Sprintf(
			"Cache storage is %.1f MiB, above the %.0f MiB limit; consider shorter TTLs",
			mib(stats.StorageSizeBytes), mib(t.MaxStorageBytes)))
	}

	if frac := stats.ExpiredFraction(); frac > t.MaxExpiredFraction {
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of entries are expired; run the cleanup more frequently",
			frac*100))
	}

	if stats.WindowStoreErrors > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d cache store errors in the last %s; check store health",
			stats.WindowStoreErrors, stats.Window))
	}
	return recs
}

func mib(b int64) float64 {
	return float64(b) / (1 << 20)
}
