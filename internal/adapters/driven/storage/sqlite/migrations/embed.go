// Package migrations embeds the SQL migrations for the SQLite store.
package migrations

import "embed"

// FS holds every *.up.sql file, applied in name order.
//
//go:embed *.sql
var FS embed.FS
