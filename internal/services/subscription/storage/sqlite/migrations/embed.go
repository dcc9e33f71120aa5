// Package migrations embeds the SQL migration files for the subscription store.
package migrations

import "embed"

// FS contains the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
