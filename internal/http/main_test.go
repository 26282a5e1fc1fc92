//go:build integration

package http

import (
	"context"
	"os"
	"testing"

	"github.com/guttosm/geo-cache-service/internal/repository"
	"github.com/guttosm/geo-cache-service/internal/testutil"
	"github.com/stretchr/testify/require"
)

// TestMain sets up a shared MongoDB container for all HTTP integration tests in this package.
func TestMain(m *testing.M) {
	os.Exit(testutil.SetupTestMainWithMongoDB(context.Background(), m))
}

// newIntegrationStore returns a Mongo cache store on a database private to the test.
func newIntegrationStore(t *testing.T) *repository.MongoCacheStore {
	t.Helper()
	db, err := repository.NewMongoDB(testutil.GetSharedContainerURI(), testutil.SanitizeDBName(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Database.Drop(ctx)
		_ = db.Close(ctx)
	})
	return repository.NewMongoCacheStore(db)
}
