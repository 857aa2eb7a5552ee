package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a migrated in-memory repo with a unique table name.
func setupTestRepo(t *testing.T) shelf.ItemRepo {
	t.Helper()
	ctx := context.Background()

	tables := shelf.Tables{Items: "items_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo()
}

// setupFileRepo creates a migrated repo backed by a database file, so the
// pool holds several connections to the same database.
func setupFileRepo(t *testing.T) shelf.ItemRepo {
	t.Helper()
	return setupFileRepoDSN(t, filepath.Join(t.TempDir(), "shelf.db"))
}

func setupFileRepoDSN(t *testing.T, dsn string) shelf.ItemRepo {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, dsn, shelf.Tables{Items: "items_" + getRandomString(t)})
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo()
}
