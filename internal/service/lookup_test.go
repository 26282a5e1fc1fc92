package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/mocks"
	"github.com/guttosm/geo-cache-service/internal/provider"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/guttosm/geo-cache-service/internal/service/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLookup(store repository.CacheStore, chains Chains, clock *testClock, opts ...LookupOption) *LookupService {
	cfg := DefaultLookupConfig()
	return NewLookupService(store, chains, cfg, append([]LookupOption{WithClock(clock.Now)}, opts...)...)
}

func TestLookup_MissThenHit(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	primary := routeProvider("google_distance")
	clock := newTestClock()
	usage := &recordingUsage{}
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, clock, WithUsageTracker(usage))
	ctx := context.Background()
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	first, err := svc.Lookup(ctx, req)
	require.NoError(t, err)
	second, err := svc.Lookup(ctx, req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, "google_distance", second.Source)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, store.Len())

	perf := svc.GetPerformance()
	assert.Equal(t, int64(1), perf.Hits)
	assert.Equal(t, int64(1), perf.Misses)
	assert.Equal(t, int64(2), perf.TotalLookups)
	assert.Equal(t, 0.5, perf.HitRate)
	assert.Equal(t, int64(1), perf.ProviderCalls)
	assert.Equal(t, []string{first.Key}, usage.hits)
	assert.Equal(t, 1, usage.misses)
}

func TestLookup_NearbyCoordinatesShareEntry(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	primary := routeProvider("google_distance")
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, newTestClock())
	ctx := context.Background()

	_, err := svc.Lookup(ctx, model.NewDistanceRequest(sanDiego, carlsbad))
	require.NoError(t, err)
	jittered := model.NewDistanceRequest(
		model.Coordinate{Lat: sanDiego.Lat + 0.00001, Lng: sanDiego.Lng - 0.00002},
		model.Coordinate{Lat: carlsbad.Lat - 0.00003, Lng: carlsbad.Lng},
	)
	res, err := svc.Lookup(ctx, jittered)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, 1, primary.Calls())
}

func TestLookup_ExpiredEntryIsRefetched(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	primary := routeProvider("google_distance")
	clock := newTestClock()
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, clock)
	ctx := context.Background()
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	_, err := svc.Lookup(ctx, req)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	res, err := svc.Lookup(ctx, req)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, 2, primary.Calls())
	assert.Equal(t, 1, store.Len())
	assert.True(t, res.ExpiresAt.Equal(clock.Now().Add(24*time.Hour)))
}

func TestLookup_GeocodeTTL(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	clock := newTestClock()
	svc := newTestLookup(store, Chains{model.KindGeocode: {geocoder("geocodio", 0.95)}}, clock)

	res, err := svc.Lookup(context.Background(), model.NewGeocodeRequest("  1200 Third Ave,  San Diego CA. "))

	require.NoError(t, err)
	assert.Equal(t, model.KindGeocode, res.Kind)
	assert.Equal(t, 30*24*time.Hour, res.ExpiresAt.Sub(res.CreatedAt))
	require.NotNil(t, res.Payload.Geocode)
	assert.Equal(t, "1200 third ave, san diego ca", res.Payload.Geocode.FormattedAddress)
}

func TestLookup_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  model.Request
	}{
		{name: "latitude out of range", req: model.NewDistanceRequest(model.Coordinate{Lat: 91}, carlsbad)},
		{name: "blank address", req: model.NewGeocodeRequest("  ...  ")},
		{name: "unknown kind", req: model.Request{Kind: "ROUTE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := routeProvider("google_distance")
			svc := newTestLookup(repository.NewMemoryCacheStore(), Chains{model.KindDistance: {primary}}, newTestClock())

			_, err := svc.Lookup(context.Background(), tt.req)

			assert.ErrorIs(t, err, model.ErrInvalidRequest)
			assert.Equal(t, 0, primary.Calls())
			assert.Equal(t, int64(0), svc.GetPerformance().TotalLookups)
		})
	}
}

func TestLookup_FallbackChain(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	primary := failingProvider("google_distance", model.KindDistance, errors.New("503 service unavailable"))
	fallback := routeProvider("osrm")
	svc := newTestLookup(store, Chains{model.KindDistance: {primary, fallback}}, newTestClock())

	res, err := svc.Lookup(context.Background(), model.NewDistanceRequest(sanDiego, carlsbad))

	require.NoError(t, err)
	assert.Equal(t, "osrm", res.Source)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, fallback.Calls())

	perf := svc.GetPerformance()
	assert.Equal(t, int64(2), perf.ProviderCalls)
	assert.Equal(t, int64(1), perf.Fallbacks)

	stored, err := store.Get(context.Background(), res.Key, model.KindDistance)
	require.NoError(t, err)
	assert.Equal(t, "osrm", stored.SourceProvider)
}

func TestLookup_AllProvidersFail(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	timeout := failingProvider("google_distance", model.KindDistance, context.DeadlineExceeded)
	down := failingProvider("osrm", model.KindDistance, errors.New("connection refused"))
	svc := newTestLookup(store, Chains{model.KindDistance: {timeout, down}}, newTestClock())

	res, err := svc.Lookup(context.Background(), model.NewDistanceRequest(sanDiego, carlsbad))

	assert.Nil(t, res)
	require.ErrorIs(t, err, model.ErrProviderUnavailable)
	var unavailable *model.ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Attempts, 2)
	assert.Equal(t, "google_distance", unavailable.Attempts[0].Provider)
	assert.Equal(t, "osrm", unavailable.Attempts[1].Provider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, store.Len())
}

func TestLookup_NoProviderConfigured(t *testing.T) {
	svc := newTestLookup(repository.NewMemoryCacheStore(), Chains{}, newTestClock())

	_, err := svc.Lookup(context.Background(), model.NewGeocodeRequest("1 main st"))

	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
}

func TestLookup_StaleEntryNotServedWhenProvidersFail(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	clock := newTestClock()
	healthy := routeProvider("google_distance")
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	_, err := newTestLookup(store, Chains{model.KindDistance: {healthy}}, clock).Lookup(context.Background(), req)
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)

	broken := failingProvider("google_distance", model.KindDistance, errors.New("boom"))
	_, err = newTestLookup(store, Chains{model.KindDistance: {broken}}, clock).Lookup(context.Background(), req)

	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
}

func TestLookup_LowConfidenceFallsThrough(t *testing.T) {
	tests := []struct {
		name           string
		chain          []*fakeProvider
		expectedSource string
		expectedConf   float64
	}{
		{
			name:           "weak primary replaced by confident fallback",
			chain:          []*fakeProvider{geocoder("geocodio", 0.4), geocoder("google", 0.9)},
			expectedSource: "google",
			expectedConf:   0.9,
		},
		{
			name:           "last provider accepted regardless of confidence",
			chain:          []*fakeProvider{geocoder("geocodio", 0.4), geocoder("nominatim", 0.3)},
			expectedSource: "nominatim",
			expectedConf:   0.3,
		},
		{
			name:           "single provider is also the last",
			chain:          []*fakeProvider{geocoder("geocodio", 0.2)},
			expectedSource: "geocodio",
			expectedConf:   0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := make([]provider.Provider, len(tt.chain))
			for i, p := range tt.chain {
				chain[i] = p
			}
			svc := newTestLookup(repository.NewMemoryCacheStore(), Chains{model.KindGeocode: chain}, newTestClock())

			res, err := svc.Lookup(context.Background(), model.NewGeocodeRequest("100 Main St"))

			require.NoError(t, err)
			assert.Equal(t, tt.expectedSource, res.Source)
			assert.Equal(t, tt.expectedConf, res.Payload.Geocode.Confidence)
		})
	}
}

func TestLookup_StoreFailuresDegradeToProvider(t *testing.T) {
	store := new(mocks.MockCacheStore)
	storeErr := model.NewStoreError(repository.OpGet, errors.New("connection reset"))
	store.On("Get", mock.Anything, mock.Anything, model.KindDistance).Return(nil, storeErr)
	store.On("Put", mock.Anything, mock.AnythingOfType("*model.CacheEntry")).
		Return(model.NewStoreError(repository.OpPut, errors.New("connection reset")))

	primary := routeProvider("google_distance")
	usage := &recordingUsage{}
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, newTestClock(), WithUsageTracker(usage))

	res, err := svc.Lookup(context.Background(), model.NewDistanceRequest(sanDiego, carlsbad))

	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.InDelta(t, sanDiego.Lat*1000, res.Payload.Distance.DistanceMeters, 0.01)
	assert.Equal(t, int64(2), svc.GetPerformance().StoreErrors)
	assert.Equal(t, 2, usage.storeErrors)
	store.AssertExpectations(t)
}

func TestLookup_StoreReadUsesShortTimeout(t *testing.T) {
	store := new(mocks.MockCacheStore)
	var deadline time.Time
	store.On("Get", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deadline, _ = args.Get(0).(context.Context).Deadline()
		}).
		Return(nil, model.ErrEntryNotFound)
	store.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := newTestLookup(store, Chains{model.KindDistance: {routeProvider("osrm")}}, newTestClock())
	before := time.Now()

	_, err := svc.Lookup(context.Background(), model.NewDistanceRequest(sanDiego, carlsbad))

	require.NoError(t, err)
	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, before.Add(300*time.Millisecond), deadline, 250*time.Millisecond)
}

func TestLookup_LocalCacheServesRepeatHits(t *testing.T) {
	store := new(mocks.MockCacheStore)
	store.On("Get", mock.Anything, mock.Anything, model.KindDistance).Return(nil, model.ErrEntryNotFound).Once()
	store.On("Put", mock.Anything, mock.Anything).Return(nil).Once()
	local := cache.NewShardedCache(16, time.Minute, 1)
	defer local.Stop()

	clock := newTestClock()
	primary := routeProvider("google_distance")
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, clock, WithLocalCache(local))
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	first, err := svc.Lookup(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, int64(1), local.Metrics().Hits)
	store.AssertExpectations(t)
}

func TestLookup_LocalCacheSkipsFailedWrites(t *testing.T) {
	store := new(mocks.MockCacheStore)
	store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, model.ErrEntryNotFound)
	store.On("Put", mock.Anything, mock.Anything).Return(model.NewStoreError(repository.OpPut, errors.New("read only")))
	local := cache.NewShardedCache(16, time.Minute, 1)
	defer local.Stop()

	svc := newTestLookup(store, Chains{model.KindDistance: {routeProvider("osrm")}}, newTestClock(), WithLocalCache(local))

	_, err := svc.Lookup(context.Background(), model.NewDistanceRequest(sanDiego, carlsbad))

	require.NoError(t, err)
	assert.Equal(t, 0, local.Metrics().Size)
}

func TestLookup_LocalCacheHonorsEntryExpiry(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	local := cache.NewShardedCache(16, 48*time.Hour, 1)
	defer local.Stop()

	clock := newTestClock()
	primary := routeProvider("google_distance")
	svc := newTestLookup(store, Chains{model.KindDistance: {primary}}, clock, WithLocalCache(local))
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	_, err := svc.Lookup(context.Background(), req)
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	res, err := svc.Lookup(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, primary.Calls())
}

func TestLookup_ConcurrentMissesAreCoalesced(t *testing.T) {
	store := repository.NewMemoryCacheStore()
	release := make(chan struct{})
	slow := &fakeProvider{
		name: "google_distance",
		kind: model.KindDistance,
		resolve: func(req model.Request) (provider.RawResult, error) {
			<-release
			return provider.RawResult{Source: provider.NameOSRM, OSRM: &provider.OSRMRoute{Distance: 1, Duration: 1}}, nil
		},
	}
	svc := newTestLookup(store, Chains{model.KindDistance: {slow}}, newTestClock())
	req := model.NewDistanceRequest(sanDiego, carlsbad)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Lookup(context.Background(), req)
			errs <- err
		}()
	}
	assert.Eventually(t, func() bool { return slow.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, slow.Calls())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(callers), svc.GetPerformance().TotalLookups)
}

func TestLookup_CallerCancelWhileCoalesced(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := &fakeProvider{
		name: "google_distance",
		kind: model.KindDistance,
		resolve: func(model.Request) (provider.RawResult, error) {
			<-release
			return provider.RawResult{Source: provider.NameOSRM, OSRM: &provider.OSRMRoute{}}, nil
		},
	}
	svc := newTestLookup(repository.NewMemoryCacheStore(), Chains{model.KindDistance: {slow}}, newTestClock())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Lookup(ctx, model.NewDistanceRequest(sanDiego, carlsbad))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTTLPolicy_For(t *testing.T) {
	p := DefaultTTLPolicy()

	assert.Equal(t, 24*time.Hour, p.For(model.KindDistance))
	assert.Equal(t, 720*time.Hour, p.For(model.KindGeocode))
}

func TestProviderResult(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "success"},
		{provider.ErrNoResult, "no_result"},
		{ErrLowConfidence, "low_confidence"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("x"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, providerResult(tt.err))
	}
}
