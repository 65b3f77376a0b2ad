// Package archivedb holds all the migrations for the archive database
package archivedb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the archive database
var Migrations = migrate.NewMigrations()
