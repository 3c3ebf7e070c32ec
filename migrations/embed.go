// Package migrations embeds the accessory cache schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/hood-bridge/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
