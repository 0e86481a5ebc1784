// Package database provides SQLite connectivity for Studiocast Capture Core.
//
// The core shares a SQLite file with the platform's management services:
// they own the rooms and class_schedules tables, the core reads them and
// appends to schedule_execution_logs. This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Embedded, versioned schema migrations
//   - Health checks used at startup
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT so that services running an older schema keep working.
package database
