// Package database provides the SQLite connection backing the accessory cache.
//
// It manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Forward migrations from an embedded filesystem
//   - A transaction helper used by stores
//
// The connection pool is capped at one connection. The cache is tiny and
// written once per discovery pass, so a single writer is never a bottleneck.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
