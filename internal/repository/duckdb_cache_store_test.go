//go:build !integration

package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDuckDBStore(t *testing.T) *DuckDBCacheStore {
	t.Helper()
	store, err := NewDuckDBCacheStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestDuckDBCacheStore_Contract(t *testing.T) {
	runCacheStoreContract(t, func(t *testing.T) CacheStore {
		return newTestDuckDBStore(t)
	})
}

func TestDuckDBCacheStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.duckdb")

	store, err := NewDuckDBCacheStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, geocodeEntry("addr:1", "1 main st", time.Now().UTC(), time.Hour)))
	require.NoError(t, store.Close(ctx))

	reopened, err := NewDuckDBCacheStore(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close(ctx) }()

	got, err := reopened.Get(ctx, "addr:1", model.KindGeocode)
	require.NoError(t, err)
	assert.Equal(t, "1 main st", got.Payload.Geocode.FormattedAddress)
}

func TestDuckDBCacheStore_UpsertMovesExpiry(t *testing.T) {
	store := newTestDuckDBStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, geocodeEntry("addr:1", "1 main st", now, time.Hour)))
	require.NoError(t, store.Put(ctx, geocodeEntry("addr:1", "1 main st", now.Add(-2*time.Hour), time.Hour)))
	require.NoError(t, store.Put(ctx, geocodeEntry("addr:2", "2 main st", now, time.Hour)))

	cleaned, err := store.DeleteExpired(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), cleaned)
	_, err = store.Get(ctx, "addr:1", model.KindGeocode)
	assert.ErrorIs(t, err, model.ErrEntryNotFound)
	_, err = store.Get(ctx, "addr:2", model.KindGeocode)
	assert.NoError(t, err)
}

func TestDuckDBCacheStore_ClosedReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	store, err := NewDuckDBCacheStore(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	_, err = store.Get(ctx, "k", model.KindDistance)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStore)
	assert.Error(t, store.Ping(ctx))
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "conflict", err: errors.New("TransactionContext Error: Transaction conflict: cannot update"), want: true},
		{name: "update conflict", err: errors.New("Conflict on update"), want: true},
		{name: "other", err: errors.New("connection closed"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransactionConflict(tt.err))
		})
	}
}

func TestDuckDBCacheStore_WithRetry(t *testing.T) {
	store := &DuckDBCacheStore{}

	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := store.withRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("Transaction conflict")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := store.withRetry(context.Background(), func() error {
			calls++
			return errors.New("Transaction conflict")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exceeded")
		assert.Equal(t, duckDBMaxRetries, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := store.withRetry(context.Background(), func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}
