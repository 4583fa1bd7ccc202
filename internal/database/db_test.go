package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/repository"
)

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestMigrateSQLiteIsRepeatable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seating.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, repository.SQLite))
	require.NoError(t, Migrate(ctx, db, repository.SQLite))

	for _, table := range []string{"seat_sections", "seats", "reservations", "waitlist_entries", "seat_allocations"} {
		var n int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestSQLiteRejectsClaimWithoutOccupant(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seating.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, repository.SQLite))

	_, err = db.ExecContext(ctx, `INSERT INTO seat_sections (name) VALUES ('Counter')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO seats (section_id, label) VALUES (1, 'C1')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO seat_allocations (seat_id, start_at, end_at) VALUES (1, '2026-01-01 17:00:00', '2026-01-01 18:00:00')`)
	assert.Error(t, err)
}

func TestMigrateUnknownDialect(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seating.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, Migrate(context.Background(), db, repository.Dialect("oracle")))
}
