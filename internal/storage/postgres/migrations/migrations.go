// Package migrations embeds the goose SQL migrations for the tenant
// registry. Per-tenant tables are created at runtime and are not
// migrated here.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
