package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteExecutor applies migrations to a SQLite database.
type SQLiteExecutor struct {
	db *sql.DB
}

// NewSQLiteExecutor creates an executor bound to db.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db}
}

// ExecuteMigration runs every statement of m in a single transaction.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, m Migration) (err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(m.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return NewDatabaseError(m.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
		}
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(m.Version, "", "commit transaction", err)
	}
	return nil
}

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL,
	checksum TEXT,
	execution_time_ms INTEGER
)`

// InitializeVersionTable creates schema_migrations when missing.
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, createVersionTable); err != nil {
		return NewDatabaseError("", createVersionTable, "create schema_migrations table", err)
	}
	return nil
}

// RecordMigration stores a successful migration.
func (e *SQLiteExecutor) RecordMigration(ctx context.Context, m Migration, executionTime time.Duration) error {
	const query = `INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`
	_, err := e.db.ExecContext(ctx, query,
		m.Version,
		time.Now().UTC().Format(time.RFC3339),
		m.Checksum,
		executionTime.Milliseconds(),
	)
	if err != nil {
		return NewDatabaseError(m.Version, query, "record migration", err)
	}
	return nil
}

// GetAppliedVersions lists schema_migrations in version order.
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewDatabaseError("", query, "list applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &elapsedMS, &row.Checksum); err != nil {
			return nil, NewDatabaseError("", query, "scan applied version", err)
		}
		row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, NewDatabaseError(row.Version, query, "parse applied_at", errors.Join(ErrVersionTableCorrupt, err))
		}
		row.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", query, "iterate applied versions", err)
	}
	return applied, nil
}

// splitStatements breaks a script on semicolons and drops comment-only
// fragments. Statements must not contain literal semicolons.
func splitStatements(script string) []string {
	var statements []string
	for _, fragment := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(stripComments(fragment)); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
