package migrations

import "embed"

// FS contains embedded SQLite migrations for user hub storage.
//
//go:embed *.sql
var FS embed.FS
