//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/guttosm/geo-cache-service/internal/circuitbreaker"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreWithCircuitBreaker_Mongo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDBFromSharedContainer(t)
	defer func() {
		_ = db.Database.Drop(ctx)
		require.NoError(t, db.Close(ctx))
	}()

	cb := circuitbreaker.New(circuitbreaker.DefaultConfig())
	store := NewCacheStoreWithCircuitBreaker(NewMongoCacheStore(db), cb)
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, distanceEntry("k", 42, now, time.Hour)))

	got, err := store.Get(ctx, "k", model.KindDistance)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Payload.Distance.DistanceMeters)

	for i := 0; i < 10; i++ {
		_, err := store.Get(ctx, "missing", model.KindDistance)
		assert.ErrorIs(t, err, model.ErrEntryNotFound)
	}

	stats := cb.GetStats()
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.True(t, stats.IsHealthy)
}

func TestCacheStoreWithCircuitBreaker_MongoDisconnected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDBFromSharedContainer(t)
	require.NoError(t, db.Close(ctx))

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		Name:             "test-disconnected",
	})
	store := NewCacheStoreWithCircuitBreaker(NewMongoCacheStore(db), cb)

	for i := 0; i < 2; i++ {
		_, err := store.Get(ctx, "k", model.KindDistance)
		assert.ErrorIs(t, err, model.ErrStore)
	}
	assert.True(t, cb.IsOpen())

	err := store.Put(ctx, distanceEntry("k", 1, time.Now(), time.Hour))
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
