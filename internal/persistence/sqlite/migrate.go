package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(sub),
		migration.NewSQLiteExecutor(cp.db),
		logger,
	)
	return manager.RunMigrations(ctx)
}
