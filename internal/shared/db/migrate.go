package db_conn

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"una/internal/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationLockID int64 = 0x756e61

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationNames возвращает имена миграций в порядке применения.
func MigrationNames() ([]string, error) {
	entries, err := MigrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies all *.sql files in internal/shared/db/migrations in lexicographic order.
// Each file runs in its own transaction. SQL files themselves MUST NOT contain BEGIN/COMMIT.
// Files use CREATE ... IF NOT EXISTS, so re-running is safe.
// An advisory lock serializes services migrating the same database at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	names, err := MigrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		sqlb, err := MigrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("lock for %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(sqlb)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s failed: %w", name, err)
		}
		log.Debug(logger.Entry{Action: "db_migration_applied", Message: name})
	}

	log.Info(logger.Entry{
		Action:  "db_migrated",
		Message: fmt.Sprintf("%d migrations applied", len(names)),
	})
	return nil
}
