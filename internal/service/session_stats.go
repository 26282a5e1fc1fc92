// Package service contains the lookup and maintenance logic of the geo cache.
package service

import (
	"sync/atomic"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// SessionStats holds the process-local counters of one LookupService.
// All fields are updated atomically and never reset while the process runs.
type SessionStats struct {
	hits          atomic.Int64
	misses        atomic.Int64
	storeErrors   atomic.Int64
	providerCalls atomic.Int64
	fallbacks     atomic.Int64
}

func (s *SessionStats) recordHit()          { s.hits.Add(1) }
func (s *SessionStats) recordMiss()         { s.misses.Add(1) }
func (s *SessionStats) recordStoreError()   { s.storeErrors.Add(1) }
func (s *SessionStats) recordProviderCall() { s.providerCalls.Add(1) }
func (s *SessionStats) recordFallback()     { s.fallbacks.Add(1) }

// Snapshot returns the current counters. Hits and misses are read separately,
// so under load the pair may straddle a concurrent lookup.
func (s *SessionStats) Snapshot() model.Performance {
	hits := s.hits.Load()
	misses := s.misses.Load()
	return model.Performance{
		Hits:          hits,
		Misses:        misses,
		HitRate:       model.HitRate(hits, misses),
		TotalLookups:  hits + misses,
		StoreErrors:   s.storeErrors.Load(),
		ProviderCalls: s.providerCalls.Load(),
		Fallbacks:     s.fallbacks.Load(),
	}
}
