// Package repository provides circuit breaker wrappers for cache store operations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/guttosm/geo-cache-service/internal/circuitbreaker"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
)

// CacheStoreWithCircuitBreaker wraps a CacheStore with circuit breaker
// protection and per-operation metrics. An open circuit surfaces as a
// *model.StoreError so callers degrade the same way as for any store failure.
type CacheStoreWithCircuitBreaker struct {
	store          CacheStore
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewCacheStoreWithCircuitBreaker creates a new store wrapper with circuit breaker.
func NewCacheStoreWithCircuitBreaker(store CacheStore, cb *circuitbreaker.CircuitBreaker) *CacheStoreWithCircuitBreaker {
	return &CacheStoreWithCircuitBreaker{
		store:          store,
		circuitBreaker: cb,
	}
}

func (r *CacheStoreWithCircuitBreaker) execute(ctx context.Context, op string, fn func() error) error {
	if err := r.circuitBreaker.Execute(ctx, fn); err != nil {
		return r.storeFailure(op, err)
	}
	metrics.RecordStoreOperation(op, "success")
	return nil
}

func (r *CacheStoreWithCircuitBreaker) storeFailure(op string, err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		metrics.RecordStoreOperation(op, "circuit_open")
	} else {
		metrics.RecordStoreOperation(op, "error")
	}
	return model.NewStoreError(op, err)
}

// Get returns the stored entry with circuit breaker protection. A missing
// entry is a normal answer and does not count against the breaker.
func (r *CacheStoreWithCircuitBreaker) Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error) {
	var (
		result   *model.CacheEntry
		notFound bool
	)
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.store.Get(ctx, key, kind)
		if errors.Is(cbErr, model.ErrEntryNotFound) {
			notFound = true
			return nil
		}
		return cbErr
	})
	switch {
	case err != nil:
		return nil, r.storeFailure(OpGet, err)
	case notFound:
		metrics.RecordStoreOperation(OpGet, "not_found")
		return nil, model.ErrEntryNotFound
	}
	metrics.RecordStoreOperation(OpGet, "success")
	return result, nil
}

// Put upserts an entry with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) Put(ctx context.Context, entry *model.CacheEntry) error {
	return r.execute(ctx, OpPut, func() error {
		return r.store.Put(ctx, entry)
	})
}

// BulkPut upserts entries with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) BulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	return r.execute(ctx, OpBulkPut, func() error {
		return r.store.BulkPut(ctx, entries)
	})
}

// IncrementHits applies hit increments with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) IncrementHits(ctx context.Context, hits []model.HitIncrement) error {
	return r.execute(ctx, OpIncrementHits, func() error {
		return r.store.IncrementHits(ctx, hits)
	})
}

// DeleteExpired sweeps expired entries with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.execute(ctx, OpDeleteExpired, func() error {
		var cbErr error
		removed, cbErr = r.store.DeleteExpired(ctx, before)
		return cbErr
	})
	return removed, err
}

// AggregateStats reads store statistics with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error) {
	var stats model.AggregateStats
	err := r.execute(ctx, OpAggregateStats, func() error {
		var cbErr error
		stats, cbErr = r.store.AggregateStats(ctx, window, now)
		return cbErr
	})
	return stats, err
}

// RecordUsage persists a usage delta with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	return r.execute(ctx, OpRecordUsage, func() error {
		return r.store.RecordUsage(ctx, delta)
	})
}

// TopEntries lists the hottest entries with circuit breaker protection.
func (r *CacheStoreWithCircuitBreaker) TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error) {
	var out []*model.CacheEntry
	err := r.execute(ctx, OpTopEntries, func() error {
		var cbErr error
		out, cbErr = r.store.TopEntries(ctx, limit)
		return cbErr
	})
	return out, err
}

// Ping bypasses the breaker so health checks always reach the backend.
func (r *CacheStoreWithCircuitBreaker) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Close closes the wrapped store.
func (r *CacheStoreWithCircuitBreaker) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *CacheStoreWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}
