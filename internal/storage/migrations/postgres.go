package migrations

import (
	"context"
	"fmt"

	"bot-reconciler/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded postgres migrations.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readSQLFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, err := pool.Exec(ctx, f.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}

	return nil
}
