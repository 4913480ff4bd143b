package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema file.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// MigrationManager orchestrates scanning and executing migrations.
type MigrationManager interface {
	// RunMigrations applies every pending migration in version order.
	RunMigrations(ctx context.Context) error
	// GetPendingMigrations lists migrations not yet recorded as applied.
	GetPendingMigrations(ctx context.Context) ([]Migration, error)
	// GetMigrationStatus reports the current schema version and pending work.
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner discovers migration files.
type FileScanner interface {
	ScanMigrations() ([]Migration, error)
	ValidateFileName(filename string) error
}

// Executor runs migrations and tracks applied versions.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// MigrationStatus summarizes the schema state.
type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
