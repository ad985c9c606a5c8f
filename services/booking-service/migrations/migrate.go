// Package migrations holds the service schema, applied at startup.
package migrations

import (
	"context"
	"embed"

	"github.com/agendly/agendly/libs/db"
)

//go:embed *.sql
var files embed.FS

func Run(ctx context.Context, pool *db.Pool) error {
	return db.Migrate(ctx, pool, files)
}
