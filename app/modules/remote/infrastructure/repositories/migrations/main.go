package remotemigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the remote schema migrations.
var Migrations = migrate.NewMigrations()
