// Package migrations embeds the SQL migration files for the views store.
package migrations

import "embed"

// FS contains the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
