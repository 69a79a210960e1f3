// Package migrations compiles the catalogue schema files into the
// binary, so the daemon migrates itself without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/goveedeck/core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the embed root
}
