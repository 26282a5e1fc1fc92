// Package repository provides interfaces for cache store operations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// CacheStore persists cache entries keyed on (key, request_kind).
//
// Implementations return model.ErrEntryNotFound from Get when no entry
// exists, and wrap every other failure in *model.StoreError. Get never filters
// on expiry; freshness is decided by the caller.
type CacheStore interface {
	// Get returns the raw stored entry for (key, kind).
	Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error)
	// Put upserts entry, replacing any existing record for the same key and kind.
	Put(ctx context.Context, entry *model.CacheEntry) error
	// BulkPut upserts entries in a single round trip. Later duplicates win.
	BulkPut(ctx context.Context, entries []*model.CacheEntry) error
	// IncrementHits applies batched hit_count increments. Missing entries are skipped.
	IncrementHits(ctx context.Context, hits []model.HitIncrement) error
	// DeleteExpired removes entries with expires_at < before and returns how many.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	// AggregateStats reports entry counts at now and usage counters over window.
	AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error)
	// RecordUsage adds delta to its hourly usage bucket.
	RecordUsage(ctx context.Context, delta model.UsageDelta) error
	// TopEntries returns up to limit entries ordered by hit_count descending.
	TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error)
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// Store operation names used in errors and metrics.
const (
	OpGet            = "get"
	OpPut            = "put"
	OpBulkPut        = "bulk_put"
	OpIncrementHits  = "increment_hits"
	OpDeleteExpired  = "delete_expired"
	OpAggregateStats = "aggregate_stats"
	OpRecordUsage    = "record_usage"
	OpTopEntries     = "top_entries"
	OpPing           = "ping"
)

var errStoreClosed = errors.New("store is closed")

// dedupeEntries keeps the last entry for each (key, kind), preserving first-seen order.
func dedupeEntries(entries []*model.CacheEntry) []*model.CacheEntry {
	if len(entries) < 2 {
		return entries
	}
	type id struct {
		key  string
		kind model.RequestKind
	}
	pos := make(map[id]int, len(entries))
	out := make([]*model.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		k := id{e.Key, e.Kind}
		if i, ok := pos[k]; ok {
			out[i] = e
			continue
		}
		pos[k] = len(out)
		out = append(out, e)
	}
	return out
}

// usageWindowStart is the first hourly bucket included in a window ending at now.
func usageWindowStart(window time.Duration, now time.Time) time.Time {
	return model.UsageBucket(now.Add(-window))
}
