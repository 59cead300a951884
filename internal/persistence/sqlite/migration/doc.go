// Package migration applies versioned schema changes to the console's SQLite
// token database.
//
// Migrations are read from an fs.FS (normally an embed.FS compiled into the
// binary) and follow the naming convention {version}_{description}.sql, for
// example "001_token_store.sql". Applied versions are tracked in the
// schema_migrations table so each file runs at most once, inside its own
// transaction.
//
// Example usage:
//
//	manager := NewManager(NewFSScanner(files, "migrations"), NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
