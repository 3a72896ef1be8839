package db

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/scout/internal/config"
)

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	lite := &DB{Dialect: SQLite}

	q := "SELECT id FROM searches WHERE user_id = ? AND id > ? LIMIT ?"

	assert.Equal(t, "SELECT id FROM searches WHERE user_id = $1 AND id > $2 LIMIT $3", pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
	assert.Equal(t, "SELECT 1", pg.Rebind("SELECT 1"))
}

func TestOpenSQLiteRunsMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "scout.db")}

	d, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLite, d.Dialect)

	for _, table := range []string{"users", "sessions", "searches", "summaries", "news_items", "conversations", "messages"} {
		var name string
		err := d.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
	require.NoError(t, d.Close())

	// Reopening must not re-apply recorded migrations.
	d, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer d.Close()

	var count int
	require.NoError(t, d.QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, config.DBConfig{URL: filepath.Join(t.TempDir(), "fk.db")})
	require.NoError(t, err)
	defer d.Close()

	_, err = d.ExecContext(ctx, `
		INSERT INTO news_items (search_id, title, rank, created_at)
		VALUES (999, 'orphan', 1, CURRENT_TIMESTAMP)`)
	assert.Error(t, err)
}

// Both dialects must accept the same row, so no column may carry a length
// limit that only Postgres enforces.
func TestMigrationsHaveNoBoundedTextColumns(t *testing.T) {
	for _, dialect := range []Dialect{Postgres, SQLite} {
		dir := "migrations/" + string(dialect)
		entries, err := fs.ReadDir(migrationsFS, dir)
		require.NoError(t, err)
		require.NotEmpty(t, entries)

		for _, e := range entries {
			content, err := fs.ReadFile(migrationsFS, dir+"/"+e.Name())
			require.NoError(t, err)
			upper := strings.ToUpper(string(content))
			assert.NotContains(t, upper, "CHAR(", "%s/%s", dialect, e.Name())
		}
	}
}
