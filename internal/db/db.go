// Package db opens the SQL connection pool and runs migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Saul-Punybz/scout/internal/config"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// Dialect identifies the SQL flavour behind a DB.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB is a *sql.DB that knows which dialect it speaks. Stores write queries
// with ? placeholders and pass them through Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured database and runs pending migrations.
func Open(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	sqlDB, err := sql.Open(cfg.Driver(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	d := &DB{DB: sqlDB, Dialect: SQLite}
	if cfg.IsPostgres() {
		d.Dialect = Postgres
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	slog.Info("database connected", "dialect", d.Dialect)

	if err := runMigrations(ctx, d); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: migrations: %w", err)
	}

	return d, nil
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// runMigrations executes the embedded SQL files for the active dialect in
// sorted order, recording each one in a tracking table so it only runs once.
func runMigrations(ctx context.Context, d *DB) error {
	createTracker := `
		CREATE TABLE IF NOT EXISTS _migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	if d.Dialect == SQLite {
		createTracker = `
		CREATE TABLE IF NOT EXISTS _migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`
	}
	if _, err := d.ExecContext(ctx, createTracker); err != nil {
		return fmt.Errorf("create tracker table: %w", err)
	}

	dir := path.Join("migrations", string(d.Dialect))
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, f := range files {
		var exists bool
		err := d.QueryRowContext(ctx,
			d.Rebind("SELECT EXISTS(SELECT 1 FROM _migrations WHERE filename = ?)"), f,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if exists {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, path.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		slog.Info("applying migration", "file", f)

		if _, err := d.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}

		if _, err := d.ExecContext(ctx, d.Rebind("INSERT INTO _migrations (filename) VALUES (?)"), f); err != nil {
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		applied++
	}

	slog.Info("migrations complete", "count", len(files), "applied", applied)
	return nil
}
