// Package migrations embeds SQL migration files into the binary.
//
// The rooms and class_schedules tables are written by the platform's
// management services; the core only reads them. They are created here so a
// fresh deployment (and the test suite) has the shape the core expects.
package migrations

import (
	"embed"

	"github.com/nerrad567/studiocast-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
