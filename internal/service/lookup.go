package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/geo-cache-service/internal/cachekey"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/guttosm/geo-cache-service/internal/provider"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/guttosm/geo-cache-service/internal/service/cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrLowConfidence rejects a geocode result scored below the minimum
// confidence when another provider remains to be tried.
var ErrLowConfidence = errors.New("result below minimum confidence")

// TTLPolicy maps request kinds to cache lifetimes.
type TTLPolicy struct {
	Distance time.Duration
	Geocode  time.Duration
}

// DefaultTTLPolicy keeps routes for a day and geocodes for thirty days.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Distance: 24 * time.Hour,
		Geocode:  30 * 24 * time.Hour,
	}
}

// For returns the lifetime for kind.
func (p TTLPolicy) For(kind model.RequestKind) time.Duration {
	if kind == model.KindGeocode {
		return p.Geocode
	}
	return p.Distance
}

// LookupConfig holds the lookup service settings.
type LookupConfig struct {
	KeyPrecision    int
	TTL             TTLPolicy
	StoreTimeout    time.Duration
	ProviderTimeout time.Duration
	// BulkWriteTimeout bounds the single BulkPut issued by batch lookups and warming.
	BulkWriteTimeout time.Duration
	// MinConfidence applies to geocode results from all but the last provider.
	MinConfidence float64
	// RefreshAhead makes Warm re-fetch entries expiring within this window.
	RefreshAhead time.Duration
	// BatchConcurrency bounds parallel store reads and per-item provider calls
	// inside LookupBatch.
	BatchConcurrency int
	// Coalesce shares one provider call among concurrent misses on a key.
	Coalesce bool
}

// DefaultLookupConfig returns the production defaults.
func DefaultLookupConfig() LookupConfig {
	return LookupConfig{
		KeyPrecision:     cachekey.DefaultPrecision,
		TTL:              DefaultTTLPolicy(),
		StoreTimeout:     300 * time.Millisecond,
		ProviderTimeout:  10 * time.Second,
		BulkWriteTimeout: 5 * time.Second,
		MinConfidence:    0.7,
		RefreshAhead:     time.Hour,
		BatchConcurrency: 8,
		Coalesce:         true,
	}
}

// Lookuper answers single and batch lookups. LookupService implements it.
type Lookuper interface {
	Lookup(ctx context.Context, req model.Request) (*model.Result, error)
	LookupBatch(ctx context.Context, reqs []model.Request) []model.BatchResult
	GetPerformance() model.Performance
}

// Chains lists the providers tried for each request kind, primary first.
type Chains map[model.RequestKind][]provider.Provider

// LookupOption customises a LookupService.
type LookupOption func(*LookupService)

// WithUsageTracker sends durable hit and miss counts to t.
func WithUsageTracker(t UsageTracker) LookupOption {
	return func(s *LookupService) {
		if t != nil {
			s.usage = t
		}
	}
}

// WithLocalCache keeps recently read and written entries in c, in front of
// the store.
func WithLocalCache(c cache.Cache) LookupOption {
	return func(s *LookupService) {
		s.local = c
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LookupOption {
	return func(s *LookupService) {
		s.now = now
	}
}

// LookupService answers distance and geocode requests from the cache,
// falling back to the provider chain on a miss.
type LookupService struct {
	store      repository.CacheStore
	normalizer *cachekey.Normalizer
	chains     Chains
	cfg        LookupConfig
	stats      *SessionStats
	usage      UsageTracker
	local      cache.Cache
	group      singleflight.Group
	now        func() time.Time
}

// NewLookupService creates a lookup service over store and chains.
func NewLookupService(store repository.CacheStore, chains Chains, cfg LookupConfig, opts ...LookupOption) *LookupService {
	def := DefaultLookupConfig()
	if cfg.TTL.Distance <= 0 {
		cfg.TTL.Distance = def.TTL.Distance
	}
	if cfg.TTL.Geocode <= 0 {
		cfg.TTL.Geocode = def.TTL.Geocode
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.BulkWriteTimeout <= 0 {
		cfg.BulkWriteTimeout = def.BulkWriteTimeout
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}

	s := &LookupService{
		store:      store,
		normalizer: cachekey.New(cfg.KeyPrecision),
		chains:     chains,
		cfg:        cfg,
		stats:      &SessionStats{},
		usage:      nopUsage{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the cached result for req when a fresh entry exists, and
// otherwise resolves it through the provider chain and caches it.
func (s *LookupService) Lookup(ctx context.Context, req model.Request) (*model.Result, error) {
	start := time.Now()
	key, err := s.normalizer.Normalize(req)
	if err != nil {
		metrics.RecordLookup(req.Kind.String(), "invalid", time.Since(start))
		return nil, err
	}

	if entry := s.readFresh(ctx, key); entry != nil {
		s.stats.recordHit()
		s.usage.Hit(key.Value, key.Kind, s.now())
		metrics.RecordLookup(key.Kind.String(), "hit", time.Since(start))
		return model.ResultFromEntry(entry, true), nil
	}

	s.stats.recordMiss()
	s.usage.Miss(s.now())

	entry, err := s.resolveMiss(ctx, key)
	if err != nil {
		metrics.RecordLookup(key.Kind.String(), "error", time.Since(start))
		return nil, err
	}
	metrics.RecordLookup(key.Kind.String(), "miss", time.Since(start))
	return model.ResultFromEntry(entry, false), nil
}

// readFresh returns the stored entry when it is still fresh. Store failures
// are counted and treated as a miss.
func (s *LookupService) readFresh(ctx context.Context, key cachekey.Key) *model.CacheEntry {
	now := s.now()
	if s.local != nil {
		if entry, ok := s.local.Get(localKey(key.Kind, key.Value), now); ok {
			return entry
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	entry, err := s.store.Get(storeCtx, key.Value, key.Kind)
	switch {
	case errors.Is(err, model.ErrEntryNotFound):
		return nil
	case err != nil:
		s.noteStoreError(err, repository.OpGet, key.Value)
		return nil
	case !entry.FreshAt(now):
		return nil
	}
	s.remember(entry)
	return entry
}

func localKey(kind model.RequestKind, value string) string {
	return string(kind) + "|" + value
}

// remember copies entry into the local tier, if one is configured.
func (s *LookupService) remember(entries ...*model.CacheEntry) {
	if s.local == nil {
		return
	}
	now := s.now()
	for _, e := range entries {
		s.local.Set(localKey(e.Kind, e.Key), e, now)
	}
}

func (s *LookupService) noteStoreError(err error, op, key string) {
	s.stats.recordStoreError()
	s.usage.StoreError(s.now())
	log.Warn().Err(err).Str("operation", op).Str("key", key).Msg("Cache store unavailable, continuing without cache")
}

// resolveMiss runs the provider chain for key, coalescing concurrent misses
// on the same key when enabled.
func (s *LookupService) resolveMiss(ctx context.Context, key cachekey.Key) (*model.CacheEntry, error) {
	if !s.cfg.Coalesce {
		return s.fetchAndStore(ctx, key)
	}
	// the shared call must not die with whichever caller arrived first
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(localKey(key.Kind, key.Value), func() (any, error) {
		return s.fetchAndStore(shared, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.CacheEntry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *LookupService) fetchAndStore(ctx context.Context, key cachekey.Key) (*model.CacheEntry, error) {
	payload, source, err := s.resolve(ctx, key.Request, true)
	if err != nil {
		return nil, err
	}
	entry := model.NewCacheEntry(key.Value, key.Request, payload, source, s.now().UTC(), s.cfg.TTL.For(key.Kind))
	s.put(ctx, entry)
	return entry, nil
}

// put writes entry synchronously. A failed write never fails the caller.
func (s *LookupService) put(ctx context.Context, entry *model.CacheEntry) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.Put(storeCtx, entry); err != nil {
		s.noteStoreError(err, repository.OpPut, entry.Key)
		return
	}
	s.remember(entry)
}

// resolve tries each provider of the chain once, in order.
func (s *LookupService) resolve(ctx context.Context, req model.Request, countStats bool) (model.Payload, string, error) {
	chain := s.chains[req.Kind]
	failure := &model.ProviderUnavailableError{Request: req.String()}

	for i, p := range chain {
		if i > 0 && countStats {
			s.stats.recordFallback()
		}
		if countStats {
			s.stats.recordProviderCall()
		}

		payload, err := s.callProvider(ctx, p, req, i == len(chain)-1)
		if err == nil {
			return payload, p.Name(), nil
		}
		failure.Attempts = append(failure.Attempts, model.ProviderAttempt{Provider: p.Name(), Err: err})
		log.Warn().Err(err).Str("provider", p.Name()).Str("request", req.String()).Msg("Provider lookup failed")

		if ctx.Err() != nil {
			break
		}
	}
	return model.Payload{}, "", failure
}

func (s *LookupService) callProvider(ctx context.Context, p provider.Provider, req model.Request, last bool) (model.Payload, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Resolve(callCtx, req)
	var payload model.Payload
	if err == nil {
		payload, err = s.accept(raw, last)
	}
	metrics.RecordProviderCall(p.Name(), providerResult(err), time.Since(start))
	return payload, err
}

// accept normalizes raw and applies the confidence floor.
func (s *LookupService) accept(raw provider.RawResult, last bool) (model.Payload, error) {
	payload, err := raw.Normalize()
	if err != nil {
		return model.Payload{}, err
	}
	if payload.Kind() == "" {
		return model.Payload{}, fmt.Errorf("%w: empty payload from %s", provider.ErrNoResult, raw.Source)
	}
	if g := payload.Geocode; g != nil && !last && g.Confidence < s.cfg.MinConfidence {
		return model.Payload{}, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, g.Confidence, s.cfg.MinConfidence)
	}
	return payload, nil
}

func providerResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, provider.ErrNoResult):
		return "no_result"
	case errors.Is(err, ErrLowConfidence):
		return "low_confidence"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// GetPerformance returns this instance's session counters.
func (s *LookupService) GetPerformance() model.Performance {
	return s.stats.Snapshot()
}

// Store exposes the backing store for maintenance and health checks.
func (s *LookupService) Store() repository.CacheStore {
	return s.store
}

type nopUsage struct{}

func (nopUsage) Hit(string, model.RequestKind, time.Time) {}
func (nopUsage) Miss(time.Time)                           {}
func (nopUsage) StoreError(time.Time)                     {}
