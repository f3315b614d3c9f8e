package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func recordedVersions(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT version FROM schema_version ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())
	return versions
}

func TestApplyMigrations_FreshDatabase(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db, nil))
	assert.Equal(t, []string{CurrentSchemaVersion}, recordedVersions(t, db))

	// Idempotent on reopen
	require.NoError(t, ApplyMigrations(ctx, db, nil))
	assert.Equal(t, []string{CurrentSchemaVersion}, recordedVersions(t, db))
}

func TestApplyMigrations_UpgradesOldDatabase(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	// A database created before the entity indexes existed
	require.NoError(t, runStep(ctx, db, "1.0.0", schemaBase))
	_, err := db.Exec(`INSERT INTO types (name, kind, subsystem, summary, created_at, updated_at)
		VALUES ('AActor', 'class', 'gameplay', 'Base class for placeable objects', '2024-01-01T00:00:00.000000Z', '2024-01-01T00:00:00.000000Z')`)
	require.NoError(t, err)

	require.NoError(t, ApplyMigrations(ctx, db, nil))
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0"}, recordedVersions(t, db))

	// Rows written before the upgrade are searchable
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM types_fts WHERE types_fts MATCH '"placeable"*'`).Scan(&n))
	assert.Equal(t, 1, n)

	// Re-running the rebuild does not duplicate index rows
	_, err = db.Exec(rebuildEntityFTS)
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM types_fts`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSchemaVersion_HighestWins(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db, nil))

	// Recorded later, but older
	_, err := db.Exec("INSERT INTO schema_version (version, applied_at) VALUES ('1.1.0', '2999-01-01 00:00:00')")
	require.NoError(t, err)

	v, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestPendingMigrations(t *testing.T) {
	pending, err := pendingMigrations(semver.MustParse("1.0.0"))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "1.1.0", pending[0].Version)
	assert.Equal(t, "1.2.0", pending[1].Version)

	pending, err = pendingMigrations(semver.MustParse(CurrentSchemaVersion))
	require.NoError(t, err)
	assert.Empty(t, pending)
}
