// Package migrations embeds the goose SQL migration files so the
// binary can apply them without a filesystem dependency on the
// deploy artifact's layout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
