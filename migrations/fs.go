// Package migrations embeds the SQL schema migrations applied at startup.
package migrations

import "embed"

// FS contains the .up.sql migration files, applied in sorted filename order.
//
//go:embed *.up.sql
var FS embed.FS
