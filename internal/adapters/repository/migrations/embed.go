// Package migrations embeds the SQLite schema.
package migrations

import "embed"

// FS contains the embedded schema files, applied in name order.
//
//go:embed *.sql
var FS embed.FS
