package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"equal-weight-index/internal/observability"
)

// ApplicationName tags index sessions in pg_stat_activity unless the DSN
// already sets application_name.
const ApplicationName = "equal-weight-index"

// Pool is the shared pgx pool behind every Postgres store.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens and pings a pool. The attempt is recorded as a "connect"
// query in the database metrics.
func NewPool(ctx context.Context, dsn string) (pool *Pool, err error) {
	defer observe("connect", time.Now(), &err)

	config, err := parseConfig(dsn)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: p}, nil
}

func parseConfig(dsn string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if config.ConnConfig.RuntimeParams["application_name"] == "" {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return config, nil
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

// observe records the duration and outcome of one store operation.
// Meant for defer with a named error result.
func observe(operation string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
