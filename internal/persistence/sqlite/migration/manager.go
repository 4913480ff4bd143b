package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type migrationManager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewMigrationManager wires a scanner and executor. A nil logger discards
// output.
func NewMigrationManager(scanner FileScanner, executor Executor, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &migrationManager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations applies pending migrations in order and stops at the first
// failure. Already applied versions are skipped.
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", len(pending))

		begin := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		elapsed := time.Since(begin)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations complete", "count", len(pending), "duration", time.Since(started))
	return nil
}

// GetPendingMigrations compares the scanned files with schema_migrations.
func (m *migrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}
	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, a := range applied {
		appliedSet[versionNumber(a.Version)] = true
	}
	var pending []Migration
	for _, migration := range available {
		if !appliedSet[versionNumber(migration.Version)] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// GetMigrationStatus reports the highest applied version and pending work.
func (m *migrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, a := range applied {
		if n := versionNumber(a.Version); n > highest {
			highest = n
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

// validateSequence rejects gaps among available versions and applied
// versions that no longer have a file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	for _, migration := range available {
		present[versionNumber(migration.Version)] = true
	}

	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if !present[v] {
				return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, v)
			}
		}
	}

	for _, a := range applied {
		if !present[versionNumber(a.Version)] {
			return fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
