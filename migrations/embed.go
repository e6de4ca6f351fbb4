// Package migrations embeds the PostgreSQL schema applied by db.Migrate.
package migrations

import "embed"

// FS holds the ordered *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
