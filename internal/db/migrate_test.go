package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// migrationsDir points at the repository's real migration files so the test
// exercises exactly what ships.
var migrationsDir = filepath.Join("..", "..", "migrations")

func TestMigrateUpDown(t *testing.T) {
	database := testDB(t)

	version, dirty, err := database.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(0), version, "fresh database should have no applied migrations")

	require.NoError(t, database.MigrateUp(migrationsDir))

	version, dirty, err = database.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// The index migration must leave report queries working.
	require.NoError(t, database.InsertReport(&ContributionReport{SessionID: "s1", Mode: "within"}))
	reports, err := database.ListReports("s1", 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	require.NoError(t, database.MigrateDown(migrationsDir))
	version, _, err = database.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.MigrateUp(migrationsDir))
	require.NoError(t, database.MigrateUp(migrationsDir), "second up should be a no-op")
}

func TestMigrateMissingDir(t *testing.T) {
	database := testDB(t)
	err := database.MigrateUp(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
