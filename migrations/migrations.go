// Package migrations embeds the inventory schema so the service binary and
// the migrate command share one source of truth.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
