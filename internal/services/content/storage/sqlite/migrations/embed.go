package migrations

import "embed"

// FS contains embedded SQLite migrations for article storage.
//
//go:embed *.sql
var FS embed.FS
