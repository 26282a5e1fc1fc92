package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory returns a fresh, empty store for one subtest.
type storeFactory func(t *testing.T) CacheStore

func distanceEntry(key string, meters float64, created time.Time, ttl time.Duration) *model.CacheEntry {
	req := model.NewDistanceRequest(model.Coordinate{Lat: 32.7157, Lng: -117.1611}, model.Coordinate{Lat: 33.6846, Lng: -117.8265})
	payload := model.Payload{Distance: &model.DistancePayload{DurationSeconds: meters / 20, DistanceMeters: meters}}
	return model.NewCacheEntry(key, req, payload, "google", created, ttl)
}

func geocodeEntry(key, address string, created time.Time, ttl time.Duration) *model.CacheEntry {
	payload := model.Payload{Geocode: &model.GeocodePayload{
		Latitude:         33.2,
		Longitude:        -117.2425,
		Accuracy:         model.AccuracyRooftop,
		Confidence:       0.95,
		FormattedAddress: address,
		Source:           "geocodio",
	}}
	return model.NewCacheEntry(key, model.NewGeocodeRequest(address), payload, "geocodio", created, ttl)
}

// runCacheStoreContract exercises behaviour every CacheStore backend must share.
func runCacheStoreContract(t *testing.T, newStore storeFactory) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	ctx := context.Background()

	t.Run("get missing returns not found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(ctx, "nope", model.KindDistance)

		assert.ErrorIs(t, err, model.ErrEntryNotFound)
		assert.False(t, errors.Is(err, model.ErrStore))
	})

	t.Run("put then get round trips", func(t *testing.T) {
		store := newStore(t)
		entry := distanceEntry("1.0000,1.0000:2.0000,2.0000", 1500, now, time.Hour)

		require.NoError(t, store.Put(ctx, entry))
		got, err := store.Get(ctx, entry.Key, model.KindDistance)

		require.NoError(t, err)
		assert.Equal(t, entry.Key, got.Key)
		assert.Equal(t, model.KindDistance, got.Kind)
		assert.Equal(t, entry.Payload, got.Payload)
		assert.Equal(t, entry.Request, got.Request)
		assert.Equal(t, "google", got.SourceProvider)
		assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))
		assert.Equal(t, int64(0), got.HitCount)
		assert.Nil(t, got.LastHitAt)
	})

	t.Run("upsert is last write wins", func(t *testing.T) {
		store := newStore(t)
		first := distanceEntry("k", 1000, now, time.Hour)
		second := distanceEntry("k", 2000, now.Add(time.Second), time.Hour)

		require.NoError(t, store.Put(ctx, first))
		require.NoError(t, store.Put(ctx, second))

		got, err := store.Get(ctx, "k", model.KindDistance)
		require.NoError(t, err)
		assert.Equal(t, 2000.0, got.Payload.Distance.DistanceMeters)

		stats, err := store.AggregateStats(ctx, 24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalEntries)
	})

	t.Run("same key different kind are separate entries", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Put(ctx, distanceEntry("shared", 10, now, time.Hour)))
		require.NoError(t, store.Put(ctx, geocodeEntry("shared", "1 main st", now, time.Hour)))

		d, err := store.Get(ctx, "shared", model.KindDistance)
		require.NoError(t, err)
		g, err := store.Get(ctx, "shared", model.KindGeocode)
		require.NoError(t, err)
		assert.NotNil(t, d.Payload.Distance)
		assert.NotNil(t, g.Payload.Geocode)
	})

	t.Run("bulk put writes all and later duplicates win", func(t *testing.T) {
		store := newStore(t)
		entries := []*model.CacheEntry{
			distanceEntry("a", 1, now, time.Hour),
			distanceEntry("b", 2, now, time.Hour),
			geocodeEntry("addr:c", "3 main st", now, time.Hour),
			distanceEntry("a", 99, now, time.Hour),
		}

		require.NoError(t, store.BulkPut(ctx, entries))
		require.NoError(t, store.BulkPut(ctx, nil))

		a, err := store.Get(ctx, "a", model.KindDistance)
		require.NoError(t, err)
		assert.Equal(t, 99.0, a.Payload.Distance.DistanceMeters)

		stats, err := store.AggregateStats(ctx, time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalEntries)
		assert.Equal(t, int64(2), stats.EntriesByKind[model.KindDistance])
		assert.Equal(t, int64(1), stats.EntriesByKind[model.KindGeocode])
	})

	t.Run("increment hits updates count and last hit", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, distanceEntry("hot", 1, now, time.Hour)))

		at := now.Add(5 * time.Minute)
		err := store.IncrementHits(ctx, []model.HitIncrement{
			{Key: "hot", Kind: model.KindDistance, Count: 3, At: now},
			{Key: "hot", Kind: model.KindDistance, Count: 2, At: at},
			{Key: "missing", Kind: model.KindDistance, Count: 7, At: at},
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "hot", model.KindDistance)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.HitCount)
		require.NotNil(t, got.LastHitAt)
		assert.True(t, at.Equal(*got.LastHitAt))

		_, err = store.Get(ctx, "missing", model.KindDistance)
		assert.ErrorIs(t, err, model.ErrEntryNotFound)
	})

	t.Run("delete expired removes exactly the past entries", func(t *testing.T) {
		store := newStore(t)
		var entries []*model.CacheEntry
		for i := 0; i < 4; i++ {
			entries = append(entries, distanceEntry(fmt.Sprintf("old-%d", i), 1, now.Add(-2*time.Hour), time.Hour))
		}
		for i := 0; i < 5; i++ {
			entries = append(entries, distanceEntry(fmt.Sprintf("new-%d", i), 1, now, time.Hour))
		}
		// expires exactly at the cutoff, so it is kept
		entries = append(entries, distanceEntry("edge", 1, now.Add(-time.Hour), time.Hour))
		require.NoError(t, store.BulkPut(ctx, entries))

		removed, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(4), removed)

		stats, err := store.AggregateStats(ctx, time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stats.TotalEntries)

		_, err = store.Get(ctx, "edge", model.KindDistance)
		assert.NoError(t, err)
		_, err = store.Get(ctx, "old-0", model.KindDistance)
		assert.ErrorIs(t, err, model.ErrEntryNotFound)

		removed, err = store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)
	})

	t.Run("aggregate stats counts expired and window usage", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.BulkPut(ctx, []*model.CacheEntry{
			distanceEntry("live", 1, now, time.Hour),
			distanceEntry("stale", 1, now.Add(-2*time.Hour), time.Hour),
			geocodeEntry("addr:x", "x st", now, 24*time.Hour),
		}))

		require.NoError(t, store.RecordUsage(ctx, model.UsageDelta{Bucket: now, Hits: 6, Misses: 1}))
		require.NoError(t, store.RecordUsage(ctx, model.UsageDelta{Bucket: now, Hits: 2, Misses: 1, StoreErrors: 1}))
		require.NoError(t, store.RecordUsage(ctx, model.UsageDelta{Bucket: now.Add(-48 * time.Hour), Hits: 100}))
		require.NoError(t, store.RecordUsage(ctx, model.UsageDelta{Bucket: now}))

		stats, err := store.AggregateStats(ctx, 24*time.Hour, now)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalEntries)
		assert.Equal(t, int64(1), stats.ExpiredEntries)
		assert.Equal(t, int64(8), stats.WindowHits)
		assert.Equal(t, int64(2), stats.WindowMisses)
		assert.Equal(t, int64(1), stats.WindowStoreErrors)
		assert.InDelta(t, 0.8, stats.HitRateOverWindow, 1e-9)
		assert.Equal(t, "24h0m0s", stats.Window)
		assert.GreaterOrEqual(t, stats.StorageSizeBytes, int64(0))
	})

	t.Run("aggregate stats on empty store", func(t *testing.T) {
		store := newStore(t)

		stats, err := store.AggregateStats(ctx, time.Hour, now)

		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalEntries)
		assert.Equal(t, 0.0, stats.HitRateOverWindow)
	})

	t.Run("top entries ordered by hit count", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.BulkPut(ctx, []*model.CacheEntry{
			distanceEntry("cold", 1, now, time.Hour),
			distanceEntry("warm", 1, now, time.Hour),
			distanceEntry("hot", 1, now, time.Hour),
		}))
		require.NoError(t, store.IncrementHits(ctx, []model.HitIncrement{
			{Key: "hot", Kind: model.KindDistance, Count: 10, At: now},
			{Key: "warm", Kind: model.KindDistance, Count: 3, At: now},
		}))

		top, err := store.TopEntries(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "hot", top[0].Key)
		assert.Equal(t, "warm", top[1].Key)

		none, err := store.TopEntries(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ping succeeds on open store", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(ctx))
	})
}
