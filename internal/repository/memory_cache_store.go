package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// MemoryCacheStore is a process-local CacheStore. It backs tests and
// single-instance deployments that do not need durability.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]*model.CacheEntry
	usage   map[time.Time]model.UsageDelta
	closed  bool
}

type memoryKey struct {
	kind model.RequestKind
	key  string
}

// NewMemoryCacheStore creates an empty in-memory store.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[memoryKey]*model.CacheEntry),
		usage:   make(map[time.Time]model.UsageDelta),
	}
}

func (s *MemoryCacheStore) checkOpen(op string) error {
	if s.closed {
		return model.NewStoreError(op, errStoreClosed)
	}
	return nil
}

// Get returns a copy of the stored entry.
func (s *MemoryCacheStore) Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewStoreError(OpGet, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(OpGet); err != nil {
		return nil, err
	}

	e, ok := s.entries[memoryKey{kind, key}]
	if !ok {
		return nil, model.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

// Put replaces the entry for (key, kind).
func (s *MemoryCacheStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError(OpPut, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(OpPut); err != nil {
		return err
	}

	s.entries[memoryKey{entry.Kind, entry.Key}] = cloneEntry(entry)
	return nil
}

// BulkPut replaces every entry under a single lock.
func (s *MemoryCacheStore) BulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError(OpBulkPut, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(OpBulkPut); err != nil {
		return err
	}

	for _, e := range entries {
		if e == nil {
			continue
		}
		s.entries[memoryKey{e.Kind, e.Key}] = cloneEntry(e)
	}
	return nil
}

// IncrementHits bumps hit_count and last_hit_at for entries still present.
func (s *MemoryCacheStore) IncrementHits(ctx context.Context, hits []model.HitIncrement) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError(OpIncrementHits, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(OpIncrementHits); err != nil {
		return err
	}

	for _, h := range hits {
		e, ok := s.entries[memoryKey{h.Kind, h.Key}]
		if !ok {
			continue
		}
		e.HitCount += h.Count
		if e.LastHitAt == nil || h.At.After(*e.LastHitAt) {
			at := h.At
			e.LastHitAt = &at
		}
	}
	return nil
}

// DeleteExpired removes entries with expires_at strictly before the cutoff.
func (s *MemoryCacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.NewStoreError(OpDeleteExpired, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(OpDeleteExpired); err != nil {
		return 0, err
	}

	var removed int64
	for k, e := range s.entries {
		if e.ExpiresAt.Before(before) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// AggregateStats counts entries and sums usage buckets inside the window.
func (s *MemoryCacheStore) AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error) {
	if err := ctx.Err(); err != nil {
		return model.AggregateStats{}, model.NewStoreError(OpAggregateStats, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(OpAggregateStats); err != nil {
		return model.AggregateStats{}, err
	}

	stats := model.AggregateStats{
		EntriesByKind: make(map[model.RequestKind]int64),
		Window:        window.String(),
	}
	for _, e := range s.entries {
		stats.TotalEntries++
		stats.EntriesByKind[e.Kind]++
		if !e.FreshAt(now) {
			stats.ExpiredEntries++
		}
		stats.StorageSizeBytes += estimateEntrySize(e)
	}

	since := usageWindowStart(window, now)
	for bucket, u := range s.usage {
		if bucket.Before(since) || bucket.After(now) {
			continue
		}
		stats.WindowHits += u.Hits
		stats.WindowMisses += u.Misses
		stats.WindowStoreErrors += u.StoreErrors
	}
	stats.HitRateOverWindow = model.HitRate(stats.WindowHits, stats.WindowMisses)
	return stats, nil
}

// RecordUsage adds delta to its hourly bucket.
func (s *MemoryCacheStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError(OpRecordUsage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(OpRecordUsage); err != nil {
		return err
	}

	bucket := model.UsageBucket(delta.Bucket)
	cur := s.usage[bucket]
	cur.Bucket = bucket
	cur.Hits += delta.Hits
	cur.Misses += delta.Misses
	cur.StoreErrors += delta.StoreErrors
	s.usage[bucket] = cur
	return nil
}

// TopEntries returns the most-hit entries, ties broken by key.
func (s *MemoryCacheStore) TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewStoreError(OpTopEntries, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(OpTopEntries); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	all := make([]*model.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].HitCount != all[j].HitCount {
			return all[i].HitCount > all[j].HitCount
		}
		return all[i].Key < all[j].Key
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*model.CacheEntry, len(all))
	for i, e := range all {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

// Ping fails once the store is closed.
func (s *MemoryCacheStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen(OpPing)
}

// Close marks the store closed; later calls fail with a StoreError.
func (s *MemoryCacheStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e *model.CacheEntry) *model.CacheEntry {
	c := *e
	c.Request = cloneRequest(e.Request)
	if e.Payload.Distance != nil {
		d := *e.Payload.Distance
		c.Payload.Distance = &d
	}
	if e.Payload.Geocode != nil {
		g := *e.Payload.Geocode
		c.Payload.Geocode = &g
	}
	if e.LastHitAt != nil {
		t := *e.LastHitAt
		c.LastHitAt = &t
	}
	return &c
}

func cloneRequest(r model.Request) model.Request {
	if r.Origin != nil {
		o := *r.Origin
		r.Origin = &o
	}
	if r.Destination != nil {
		d := *r.Destination
		r.Destination = &d
	}
	return r
}

// estimateEntrySize approximates an entry's stored footprint from its JSON encoding.
func estimateEntrySize(e *model.CacheEntry) int64 {
	b, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
