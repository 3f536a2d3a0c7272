package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// RunMigrations applies every not-yet-applied *.up.sql file from the
// embedded filesystem in sorted order. Applied versions are tracked in
// a schema_migrations table; each migration runs in its own
// transaction so multi-statement files are atomic.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations embed.FS, dir string, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	versions, err := pendingVersions(ctx, pool, migrations, dir)
	if err != nil {
		return err
	}

	for _, name := range versions {
		if err := applyMigration(ctx, pool, migrations, dir, name); err != nil {
			return err
		}
		logger.Info("migration applied", slog.String("version", name))
	}

	return nil
}

// pendingVersions lists *.up.sql files in dir, sorted, that have no
// row in schema_migrations yet.
func pendingVersions(ctx context.Context, pool *pgxpool.Pool, migrations embed.FS, dir string) ([]string, error) {
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		var applied bool
		if err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name,
		).Scan(&applied); err != nil {
			return nil, fmt.Errorf("check migration %s: %w", name, err)
		}
		if !applied {
			pending = append(pending, name)
		}
	}

	sort.Strings(pending)
	return pending, nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, migrations embed.FS, dir, name string) error {
	content, err := fs.ReadFile(migrations, dir+"/"+name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx for migration %s: %w", name, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
