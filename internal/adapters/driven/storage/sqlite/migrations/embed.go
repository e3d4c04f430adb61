// Package migrations holds the catalogue schema as numbered SQL files.
package migrations

import "embed"

// FS contains every NNN_name.up.sql file.
//
//go:embed *.sql
var FS embed.FS
