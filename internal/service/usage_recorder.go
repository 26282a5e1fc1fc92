package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/rs/zerolog/log"
)

// UsageTracker receives lookup outcomes that must outlive the process:
// per-entry hit counts and the hourly hit/miss counters.
type UsageTracker interface {
	Hit(key string, kind model.RequestKind, at time.Time)
	Miss(at time.Time)
	StoreError(at time.Time)
}

// UsageRecorderConfig holds configuration for the usage recorder.
type UsageRecorderConfig struct {
	// BufferSize is the size of the event channel buffer.
	BufferSize int
	// FlushInterval is how often aggregated counts are written.
	FlushInterval time.Duration
	// MaxPendingKeys forces a flush once this many distinct entries have hits.
	MaxPendingKeys int
	// WriteTimeout bounds each store write.
	WriteTimeout time.Duration
}

// DefaultUsageRecorderConfig returns the production defaults.
func DefaultUsageRecorderConfig() UsageRecorderConfig {
	return UsageRecorderConfig{
		BufferSize:     4096,
		FlushInterval:  5 * time.Second,
		MaxPendingKeys: 500,
		WriteTimeout:   2 * time.Second,
	}
}

type usageEventType uint8

const (
	usageHit usageEventType = iota
	usageMiss
	usageStoreError
)

type usageEvent struct {
	typ  usageEventType
	key  string
	kind model.RequestKind
	at   time.Time
}

type hitKey struct {
	key  string
	kind model.RequestKind
}

// UsageRecorder aggregates usage events in memory and flushes them to the
// store in batches from a single background worker. Enqueueing never blocks:
// when the buffer is full the event is dropped and counted.
type UsageRecorder struct {
	store        repository.CacheStore
	eventCh      chan usageEvent
	flushCh      chan chan struct{}
	stopCh       chan struct{}
	wg           sync.WaitGroup
	stopOnce     sync.Once
	cfg          UsageRecorderConfig
	pendingHits  map[hitKey]*model.HitIncrement
	pendingUsage map[time.Time]*model.UsageDelta

	enqueued atomic.Int64
	dropped  atomic.Int64
	flushed  atomic.Int64
	errors   atomic.Int64
}

// NewUsageRecorder starts a recorder writing to store.
func NewUsageRecorder(store repository.CacheStore, cfg UsageRecorderConfig) *UsageRecorder {
	def := DefaultUsageRecorderConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.MaxPendingKeys <= 0 {
		cfg.MaxPendingKeys = def.MaxPendingKeys
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	r := &UsageRecorder{
		store:        store,
		eventCh:      make(chan usageEvent, cfg.BufferSize),
		flushCh:      make(chan chan struct{}),
		stopCh:       make(chan struct{}),
		cfg:          cfg,
		pendingHits:  make(map[hitKey]*model.HitIncrement),
		pendingUsage: make(map[time.Time]*model.UsageDelta),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Hit records a cache hit on an entry.
func (r *UsageRecorder) Hit(key string, kind model.RequestKind, at time.Time) {
	r.enqueue(usageEvent{typ: usageHit, key: key, kind: kind, at: at})
}

// Miss records a cache miss.
func (r *UsageRecorder) Miss(at time.Time) {
	r.enqueue(usageEvent{typ: usageMiss, at: at})
}

// StoreError records a store failure seen by a lookup.
func (r *UsageRecorder) StoreError(at time.Time) {
	r.enqueue(usageEvent{typ: usageStoreError, at: at})
}

func (r *UsageRecorder) enqueue(ev usageEvent) {
	select {
	case <-r.stopCh:
		r.drop()
		return
	default:
	}
	select {
	case r.eventCh <- ev:
		r.enqueued.Add(1)
	default:
		r.drop()
	}
}

func (r *UsageRecorder) drop() {
	r.dropped.Add(1)
	metrics.UsageEventsDropped.Inc()
}

func (r *UsageRecorder) worker() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-r.eventCh:
			r.apply(ev)
			if len(r.pendingHits) >= r.cfg.MaxPendingKeys {
				r.flush()
			}
		case <-ticker.C:
			r.flush()
		case done := <-r.flushCh:
			r.drain()
			r.flush()
			close(done)
		case <-r.stopCh:
			r.drain()
			r.flush()
			return
		}
	}
}

// drain applies everything already buffered without blocking.
func (r *UsageRecorder) drain() {
	for {
		select {
		case ev := <-r.eventCh:
			r.apply(ev)
		default:
			return
		}
	}
}

func (r *UsageRecorder) apply(ev usageEvent) {
	bucket := model.UsageBucket(ev.at)
	delta, ok := r.pendingUsage[bucket]
	if !ok {
		delta = &model.UsageDelta{Bucket: bucket}
		r.pendingUsage[bucket] = delta
	}

	switch ev.typ {
	case usageHit:
		delta.Hits++
		k := hitKey{key: ev.key, kind: ev.kind}
		inc, ok := r.pendingHits[k]
		if !ok {
			inc = &model.HitIncrement{Key: ev.key, Kind: ev.kind}
			r.pendingHits[k] = inc
		}
		inc.Count++
		if ev.at.After(inc.At) {
			inc.At = ev.at
		}
	case usageMiss:
		delta.Misses++
	case usageStoreError:
		delta.StoreErrors++
	}
}

// flush writes pending counts. Failed writes are logged and discarded;
// usage counters are best effort.
func (r *UsageRecorder) flush() {
	if len(r.pendingHits) == 0 && len(r.pendingUsage) == 0 {
		return
	}

	if len(r.pendingHits) > 0 {
		hits := make([]model.HitIncrement, 0, len(r.pendingHits))
		for _, inc := range r.pendingHits {
			hits = append(hits, *inc)
		}
		r.write("increment_hits", func(ctx context.Context) error {
			return r.store.IncrementHits(ctx, hits)
		})
		clear(r.pendingHits)
	}

	for _, delta := range r.pendingUsage {
		d := *delta
		r.write("record_usage", func(ctx context.Context) error {
			return r.store.RecordUsage(ctx, d)
		})
	}
	clear(r.pendingUsage)
}

func (r *UsageRecorder) write(op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		r.errors.Add(1)
		log.Warn().Err(err).Str("operation", op).Msg("Failed to flush cache usage")
		return
	}
	r.flushed.Add(1)
}

// Flush synchronously writes everything enqueued so far.
func (r *UsageRecorder) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-r.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the buffer, flushes, and stops the worker.
func (r *UsageRecorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
	})
}

// Stats returns recorder counters: events enqueued, dropped, successful
// writes and failed writes.
func (r *UsageRecorder) Stats() (enqueued, dropped, flushed, errors int64) {
	return r.enqueued.Load(), r.dropped.Load(), r.flushed.Load(), r.errors.Load()
}
