// Package migrations embeds the ledger schema.
package migrations

import "embed"

// FS holds the ordered NNN_description.sql files.
//
//go:embed *.sql
var FS embed.FS
