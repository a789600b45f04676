package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// CreateTestDB opens a migrated SQLite database in a temp directory
func CreateTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tabletop.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	return db
}
