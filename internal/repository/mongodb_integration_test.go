//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoDB_Integration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDBFromSharedContainer(t)
	defer func() {
		require.NoError(t, db.Close(ctx))
	}()

	t.Run("connection successful", func(t *testing.T) {
		assert.NotNil(t, db.Client)
		assert.NotNil(t, db.Database)
		assert.NotNil(t, db.Entries)
		assert.NotNil(t, db.Usage)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, db.HealthCheck(ctx))
	})

	t.Run("indexes created", func(t *testing.T) {
		cursor, err := db.Entries.Indexes().List(ctx)
		require.NoError(t, err)
		var indexes []bson.M
		require.NoError(t, cursor.All(ctx, &indexes))

		names := make(map[string]bson.M)
		for _, idx := range indexes {
			names[idx["name"].(string)] = idx
		}
		require.Contains(t, names, "key_kind_unique")
		assert.Equal(t, true, names["key_kind_unique"]["unique"])
		require.Contains(t, names, "expires_at_1")
		_, isTTL := names["expires_at_1"]["expireAfterSeconds"]
		assert.False(t, isTTL)
		assert.Contains(t, names, "hit_count_-1")
	})

	t.Run("reconnect is idempotent on indexes", func(t *testing.T) {
		again, err := NewMongoDB(getSharedContainerURI(), db.Database.Name())
		require.NoError(t, err)
		closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, again.Close(closeCtx))
	})
}
