package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry every migration file registers into.
var Migrations = migrate.NewMigrations()
