package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates a migration could not be executed.
	ErrMigrationFailed = errors.New("migration execution failed")
	// ErrInvalidMigrationFile indicates a malformed migration file.
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict indicates a gap or an applied version without a file.
	ErrVersionConflict = errors.New("migration version conflict")
	// ErrInvalidVersion indicates a non-numeric migration version.
	ErrInvalidVersion = errors.New("invalid migration version")
	// ErrDuplicateVersion indicates two files share a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrVersionTableCorrupt indicates schema_migrations holds unexpected data.
	ErrVersionTableCorrupt = errors.New("schema_migrations table is corrupted")
)

// MigrationError attaches the version and file to a migration failure.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// NewMigrationError builds a MigrationError.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// FileSystemError wraps failures reading migration sources.
type FileSystemError struct {
	Path      string
	Operation string
	Err       error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("filesystem error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// NewFileSystemError builds a FileSystemError.
func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Operation: operation, Err: err}
}

// DatabaseError wraps failures talking to the database.
type DatabaseError struct {
	Version   string
	Query     string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("database error in migration %s during %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError builds a DatabaseError.
func NewDatabaseError(version, query, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Query: query, Operation: operation, Err: err}
}
