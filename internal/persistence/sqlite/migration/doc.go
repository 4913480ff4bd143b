// Package migration applies versioned SQL schema files to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embedded directory) and
// must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Versions must form a gap-free sequence. Each file
// runs in its own transaction and is recorded in the schema_migrations table
// together with its checksum and execution time.
//
// Typical wiring:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("booking.db"))
//	scanner := migration.NewFileScanner(migrationsFS)
//	manager := migration.NewMigrationManager(scanner, migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
