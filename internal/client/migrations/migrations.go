// Package migrations embeds the SQLite schema of the agent's receipt
// journal.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
