// Package migrations embeds SQL migration files for the SQLite stores.
//
// Each database has its own directory of golang-migrate style
// NNN_name.up.sql / NNN_name.down.sql pairs.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed credentials/*.sql records/*.sql
var FS embed.FS
