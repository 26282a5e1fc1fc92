//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMongoStore(t *testing.T) *MongoCacheStore {
	t.Helper()
	db := setupTestDBFromSharedContainer(t)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Database.Drop(ctx)
		_ = db.Close(ctx)
	})
	return NewMongoCacheStore(db)
}

func TestMongoCacheStore_Contract(t *testing.T) {
	runCacheStoreContract(t, func(t *testing.T) CacheStore {
		return newTestMongoStore(t)
	})
}

func TestMongoCacheStore_ConcurrentUpsertsKeepOneDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestMongoStore(t)
	now := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Put(ctx, distanceEntry("race", float64(i), now, time.Hour))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := store.entries.CountDocuments(ctx, entryFilter("race", model.KindDistance))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMongoCacheStore_StorageSizeAfterWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestMongoStore(t)
	now := time.Now().UTC()

	var entries []*model.CacheEntry
	for i := 0; i < 50; i++ {
		entries = append(entries, geocodeEntry(fmt.Sprintf("addr:%d", i), fmt.Sprintf("%d main st", i), now, time.Hour))
	}
	require.NoError(t, store.BulkPut(ctx, entries))

	stats, err := store.AggregateStats(ctx, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stats.TotalEntries)
	assert.Greater(t, stats.StorageSizeBytes, int64(0))
}
