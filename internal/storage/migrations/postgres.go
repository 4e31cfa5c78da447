package migrations

import (
	"context"
	"log"

	"equal-weight-index/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded Postgres schema. Files run whole
// through the simple protocol, so one file may hold several statements.
// A nil logger keeps the run silent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *log.Logger) error {
	ms, err := Load(PostgresFS, "postgres", false)
	if err != nil {
		return err
	}
	return apply(ctx, "postgres", ms, func(ctx context.Context, stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	}, logger)
}
