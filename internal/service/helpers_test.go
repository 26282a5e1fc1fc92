package service

import (
	"context"
	"sync"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/provider"
)

var (
	sanDiego  = model.Coordinate{Lat: 32.7157, Lng: -117.1611}
	carlsbad  = model.Coordinate{Lat: 33.1581, Lng: -117.3506}
	oceanside = model.Coordinate{Lat: 33.1959, Lng: -117.3795}
)

// testClock is a manually advanced clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeProvider answers through resolve and counts calls.
type fakeProvider struct {
	name    string
	kind    model.RequestKind
	resolve func(req model.Request) (provider.RawResult, error)

	mu    sync.Mutex
	calls int
	seen  []model.Request
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) Supports(kind model.RequestKind) bool { return kind == f.kind }

func (f *fakeProvider) Resolve(_ context.Context, req model.Request) (provider.RawResult, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	return f.resolve(req)
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeBatchProvider resolves every item of a batch with resolve. A non-zero
// itemDelta makes it answer with that many items more (or fewer) than asked.
type fakeBatchProvider struct {
	fakeProvider
	itemDelta  int
	batchErr   error
	batchCalls int
	batchSizes []int
}

func (f *fakeBatchProvider) ResolveBatch(_ context.Context, reqs []model.Request) ([]provider.BatchItem, error) {
	f.mu.Lock()
	f.batchCalls++
	f.batchSizes = append(f.batchSizes, len(reqs))
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	items := make([]provider.BatchItem, max(len(reqs)+f.itemDelta, 0))
	for i, r := range reqs {
		if i == len(items) {
			break
		}
		items[i].Result, items[i].Err = f.resolve(r)
	}
	return items, nil
}

// routeProvider returns an OSRM-shaped route whose distance encodes the
// origin latitude so tests can tell results apart.
func routeProvider(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		kind: model.KindDistance,
		resolve: func(req model.Request) (provider.RawResult, error) {
			return provider.RawResult{
				Source: provider.NameOSRM,
				OSRM:   &provider.OSRMRoute{Distance: req.Origin.Lat * 1000, Duration: 600},
			}, nil
		},
	}
}

func failingProvider(name string, kind model.RequestKind, err error) *fakeProvider {
	return &fakeProvider{
		name: name,
		kind: kind,
		resolve: func(model.Request) (provider.RawResult, error) {
			return provider.RawResult{}, err
		},
	}
}

// geocoder returns a Geocodio-shaped result with the given confidence.
func geocoder(name string, confidence float64) *fakeProvider {
	return &fakeProvider{
		name: name,
		kind: model.KindGeocode,
		resolve: func(req model.Request) (provider.RawResult, error) {
			return provider.RawResult{
				Source: provider.NameGeocodio,
				Geocodio: &provider.GeocodioResult{
					FormattedAddress: req.Address,
					Location:         provider.LatLng{Lat: 33.2, Lng: -117.24},
					Accuracy:         confidence,
					AccuracyType:     "rooftop",
				},
			}, nil
		},
	}
}

// recordingUsage captures usage events synchronously.
type recordingUsage struct {
	mu          sync.Mutex
	hits        []string
	misses      int
	storeErrors int
}

func (r *recordingUsage) Hit(key string, _ model.RequestKind, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, key)
}

func (r *recordingUsage) Miss(time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *recordingUsage) StoreError(time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeErrors++
}
