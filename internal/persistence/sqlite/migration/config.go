package migration

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteConfig holds connection settings for the modernc SQLite driver.
//
// Pragmas are encoded into the DSN so every pooled connection receives them,
// not only the first one.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
	// EnableForeignKeys turns on foreign key enforcement.
	EnableForeignKeys bool
	// JournalMode is one of DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF.
	JournalMode string
	// Synchronous is one of OFF, NORMAL, FULL, EXTRA.
	Synchronous string
	// CacheSize is the page cache size (negative values are KiB).
	CacheSize int
	// TxLock selects how BEGIN acquires locks: deferred, immediate or exclusive.
	TxLock string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	validJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
	validTxLocks      = map[string]bool{"deferred": true, "immediate": true, "exclusive": true}
)

// Validate checks the configuration for obviously invalid values.
func (c SQLiteConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Path) == "" {
		problems = append(problems, "path cannot be empty")
	}
	if c.BusyTimeout < 0 {
		problems = append(problems, "busy timeout cannot be negative")
	}
	if c.JournalMode != "" && !validJournalModes[strings.ToUpper(c.JournalMode)] {
		problems = append(problems, fmt.Sprintf("invalid journal mode %q", c.JournalMode))
	}
	if c.Synchronous != "" && !validSyncModes[strings.ToUpper(c.Synchronous)] {
		problems = append(problems, fmt.Sprintf("invalid synchronous mode %q", c.Synchronous))
	}
	if c.TxLock != "" && !validTxLocks[strings.ToLower(c.TxLock)] {
		problems = append(problems, fmt.Sprintf("invalid transaction lock %q", c.TxLock))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0 {
		problems = append(problems, "connection pool settings cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid SQLite configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DataSourceName renders the modernc DSN for the configuration.
func (c SQLiteConfig) DataSourceName() string {
	params := url.Values{}
	pragmas := []string{fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds())}
	if c.EnableForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	if c.JournalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("synchronous(%s)", strings.ToUpper(c.Synchronous)))
	}
	if c.CacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("cache_size(%d)", c.CacheSize))
	}
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}
	if c.TxLock != "" {
		params.Set("_txlock", strings.ToLower(c.TxLock))
	}

	return "file:" + c.Path + "?" + params.Encode()
}

// Open validates the configuration, creates the database directory and
// returns a pinged connection pool.
func Open(config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return nil, NewFileSystemError(filepath.Dir(config.Path), "create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", config.DataSourceName())
	if err != nil {
		return nil, NewDatabaseError("", "", "open database", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewDatabaseError("", "", "ping database", err)
	}
	return db, nil
}

// DefaultSQLiteConfig returns production settings for a file database.
func DefaultSQLiteConfig(databasePath string) SQLiteConfig {
	return SQLiteConfig{
		Path:              databasePath,
		BusyTimeout:       10 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		CacheSize:         -2000,
		TxLock:            "immediate",
		MaxOpenConns:      10,
		MaxIdleConns:      5,
		ConnMaxLifetime:   5 * time.Minute,
	}
}

// TempFileTestSQLiteConfig returns settings suited to a throwaway test file.
func TempFileTestSQLiteConfig(tempFilePath string) SQLiteConfig {
	return SQLiteConfig{
		Path:              tempFilePath,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "OFF",
		CacheSize:         -1000,
		TxLock:            "immediate",
		MaxOpenConns:      4,
		MaxIdleConns:      2,
		ConnMaxLifetime:   time.Minute,
	}
}
