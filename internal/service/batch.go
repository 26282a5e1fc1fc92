package service

import (
	"context"
	"fmt"
	"time"

	"github.com/guttosm/geo-cache-service/internal/cachekey"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/guttosm/geo-cache-service/internal/provider"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// pendingKey is one distinct key of a batch and the request positions using it.
type pendingKey struct {
	key     cachekey.Key
	indices []int
}

// resolution is the outcome of resolving one pendingKey.
type resolution struct {
	entry *model.CacheEntry
	err   error
}

// LookupBatch resolves many requests. The result has one element per request,
// in request order, each carrying either a result or its own error. Misses
// are resolved with one batched provider call per kind where the provider
// supports it, and all new entries are written with a single BulkPut.
func (s *LookupService) LookupBatch(ctx context.Context, reqs []model.Request) []model.BatchResult {
	results := make([]model.BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	start := time.Now()

	keys := s.groupRequests(reqs, results)
	entries := s.readMany(ctx, keys)

	now := s.now()
	var misses []*pendingKey
	for i, pk := range keys {
		if e := entries[i]; e != nil {
			res := model.ResultFromEntry(e, true)
			for _, idx := range pk.indices {
				results[idx].Result = res
				s.stats.recordHit()
				s.usage.Hit(pk.key.Value, pk.key.Kind, now)
				metrics.RecordLookup(pk.key.Kind.String(), "hit", time.Since(start))
			}
			continue
		}
		for range pk.indices {
			s.stats.recordMiss()
			s.usage.Miss(now)
		}
		misses = append(misses, pk)
	}

	resolved := s.resolveMany(ctx, misses, true)
	var fresh []*model.CacheEntry
	for _, r := range resolved {
		if r.entry != nil {
			fresh = append(fresh, r.entry)
		}
	}
	if err := s.bulkPut(ctx, fresh); err != nil {
		s.noteStoreError(err, repository.OpBulkPut, "")
	}

	for i, pk := range misses {
		r := resolved[i]
		outcome := "miss"
		var res *model.Result
		if r.err != nil {
			outcome = "error"
		} else {
			res = model.ResultFromEntry(r.entry, false)
		}
		for _, idx := range pk.indices {
			results[idx] = model.BatchResult{Result: res, Err: r.err}
			metrics.RecordLookup(pk.key.Kind.String(), outcome, time.Since(start))
		}
	}
	return results
}

// groupRequests normalizes every request and groups positions by key.
// Invalid requests get their error written into results directly.
func (s *LookupService) groupRequests(reqs []model.Request, results []model.BatchResult) []*pendingKey {
	byKey := make(map[string]*pendingKey)
	var order []*pendingKey
	for i, req := range reqs {
		key, err := s.normalizer.Normalize(req)
		if err != nil {
			results[i].Err = err
			metrics.RecordLookup(req.Kind.String(), "invalid", 0)
			continue
		}
		id := string(key.Kind) + "|" + key.Value
		pk, ok := byKey[id]
		if !ok {
			pk = &pendingKey{key: key}
			byKey[id] = pk
			order = append(order, pk)
		}
		pk.indices = append(pk.indices, i)
	}
	return order
}

// readMany reads fresh entries for keys with bounded concurrency.
func (s *LookupService) readMany(ctx context.Context, keys []*pendingKey) []*model.CacheEntry {
	entries := make([]*model.CacheEntry, len(keys))
	var eg errgroup.Group
	eg.SetLimit(s.cfg.BatchConcurrency)
	for i, pk := range keys {
		eg.Go(func() error {
			entries[i] = s.readFresh(ctx, pk.key)
			return nil
		})
	}
	_ = eg.Wait()
	return entries
}

// resolveMany runs the provider chains for keys, grouped by kind. The
// returned slice is aligned with keys.
func (s *LookupService) resolveMany(ctx context.Context, keys []*pendingKey, countStats bool) []resolution {
	out := make([]resolution, len(keys))
	byKind := make(map[model.RequestKind][]int)
	for i, pk := range keys {
		byKind[pk.key.Kind] = append(byKind[pk.key.Kind], i)
	}
	for kind, positions := range byKind {
		s.resolveKind(ctx, kind, keys, positions, out, countStats)
	}
	return out
}

func (s *LookupService) resolveKind(ctx context.Context, kind model.RequestKind, keys []*pendingKey, positions []int, out []resolution, countStats bool) {
	chain := s.chains[kind]
	attempts := make(map[int][]model.ProviderAttempt)
	remaining := positions

	for ci, p := range chain {
		if len(remaining) == 0 {
			break
		}
		if ci > 0 && countStats {
			for range remaining {
				s.stats.recordFallback()
			}
		}

		reqs := make([]model.Request, len(remaining))
		for j, pos := range remaining {
			reqs[j] = keys[pos].key.Request
		}
		payloads, errs := s.callMany(ctx, p, reqs, ci == len(chain)-1, countStats)

		now := s.now().UTC()
		var next []int
		for j, pos := range remaining {
			if errs[j] == nil {
				k := keys[pos].key
				out[pos].entry = model.NewCacheEntry(k.Value, k.Request, payloads[j], p.Name(), now, s.cfg.TTL.For(kind))
				continue
			}
			attempts[pos] = append(attempts[pos], model.ProviderAttempt{Provider: p.Name(), Err: errs[j]})
			next = append(next, pos)
		}
		if len(next) > 0 {
			log.Warn().Str("provider", p.Name()).Int("failed", len(next)).Int("requested", len(remaining)).Msg("Provider batch lookup incomplete")
		}
		remaining = next

		if ctx.Err() != nil {
			break
		}
	}

	for _, pos := range remaining {
		out[pos].err = &model.ProviderUnavailableError{
			Request:  keys[pos].key.Request.String(),
			Attempts: attempts[pos],
		}
	}
}

// callMany resolves reqs against one provider: one ResolveBatch call when the
// provider supports batching, otherwise concurrent single calls.
func (s *LookupService) callMany(ctx context.Context, p provider.Provider, reqs []model.Request, last, countStats bool) ([]model.Payload, []error) {
	payloads := make([]model.Payload, len(reqs))
	errs := make([]error, len(reqs))

	if bp, ok := p.(provider.BatchProvider); ok {
		if countStats {
			s.stats.recordProviderCall()
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()

		start := time.Now()
		items, err := bp.ResolveBatch(callCtx, reqs)
		metrics.RecordProviderCall(p.Name(), providerResult(err), time.Since(start))
		if err == nil && len(items) != len(reqs) {
			err = &provider.APIError{
				Provider: p.Name(),
				Status:   "batch_size_mismatch",
				Message:  fmt.Sprintf("%d results for %d requests", len(items), len(reqs)),
			}
		}
		if err != nil {
			for i := range errs {
				errs[i] = err
			}
			return payloads, errs
		}
		for i, item := range items {
			if item.Err != nil {
				errs[i] = item.Err
				continue
			}
			payloads[i], errs[i] = s.accept(item.Result, last)
		}
		return payloads, errs
	}

	var eg errgroup.Group
	eg.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		eg.Go(func() error {
			if countStats {
				s.stats.recordProviderCall()
			}
			payloads[i], errs[i] = s.callProvider(ctx, p, req, last)
			return nil
		})
	}
	_ = eg.Wait()
	return payloads, errs
}

func (s *LookupService) bulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.BulkWriteTimeout)
	defer cancel()
	if err := s.store.BulkPut(storeCtx, entries); err != nil {
		return err
	}
	s.remember(entries...)
	return nil
}

// WarmResult summarises one Warm call.
type WarmResult struct {
	Requested    int
	AlreadyFresh int
	Warmed       int
	Failures     []model.WarmFailure
}

// Err returns a *model.PartialWarmFailure when any request failed.
func (r WarmResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &model.PartialWarmFailure{Attempted: r.Requested, Failures: r.Failures}
}

// Warm populates the cache for reqs without touching session statistics.
// Entries that stay fresh beyond RefreshAhead are left alone; everything else
// is fetched and written with one BulkPut.
func (s *LookupService) Warm(ctx context.Context, reqs []model.Request) WarmResult {
	result := WarmResult{Requested: len(reqs)}
	if len(reqs) == 0 {
		return result
	}

	scratch := make([]model.BatchResult, len(reqs))
	keys := s.groupRequests(reqs, scratch)
	for i, r := range scratch {
		if r.Err != nil {
			result.Failures = append(result.Failures, model.WarmFailure{Request: reqs[i].String(), Error: r.Err.Error()})
		}
	}

	horizon := s.now().Add(s.cfg.RefreshAhead)
	fresh := s.freshManyBeyond(ctx, keys, horizon)
	var stale []*pendingKey
	for i, pk := range keys {
		if fresh[i] {
			result.AlreadyFresh += len(pk.indices)
			continue
		}
		stale = append(stale, pk)
	}

	resolved := s.resolveMany(ctx, stale, false)
	var warmed []*model.CacheEntry
	var warmedKeys []*pendingKey
	for i, r := range resolved {
		if r.err != nil {
			result.Failures = append(result.Failures, model.WarmFailure{Request: stale[i].key.Request.String(), Error: r.err.Error()})
			continue
		}
		warmed = append(warmed, r.entry)
		warmedKeys = append(warmedKeys, stale[i])
	}

	if err := s.bulkPut(ctx, warmed); err != nil {
		log.Warn().Err(err).Int("entries", len(warmed)).Msg("Failed to write warmed entries")
		for _, pk := range warmedKeys {
			result.Failures = append(result.Failures, model.WarmFailure{Request: pk.key.Request.String(), Error: err.Error()})
		}
		return result
	}
	for _, pk := range warmedKeys {
		result.Warmed += len(pk.indices)
	}
	return result
}

// freshManyBeyond checks freshBeyond for keys with bounded concurrency.
func (s *LookupService) freshManyBeyond(ctx context.Context, keys []*pendingKey, horizon time.Time) []bool {
	fresh := make([]bool, len(keys))
	var eg errgroup.Group
	eg.SetLimit(s.cfg.BatchConcurrency)
	for i, pk := range keys {
		eg.Go(func() error {
			fresh[i] = s.freshBeyond(ctx, pk.key, horizon)
			return nil
		})
	}
	_ = eg.Wait()
	return fresh
}

// freshBeyond reports whether the stored entry for key outlives horizon.
// Store failures count as not fresh so the entry is re-fetched.
func (s *LookupService) freshBeyond(ctx context.Context, key cachekey.Key, horizon time.Time) bool {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	entry, err := s.store.Get(storeCtx, key.Value, key.Kind)
	if err != nil {
		return false
	}
	return entry.FreshAt(horizon)
}
