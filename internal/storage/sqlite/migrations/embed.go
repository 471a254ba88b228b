package migrations

import "embed"

// FS contains embedded SQLite migrations for polygon storage.
//
//go:embed *.sql
var FS embed.FS
