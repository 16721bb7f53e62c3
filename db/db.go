// Package db is the persistence gateway: a thin typed layer over the
// Postgres schema that stores beacon states, blocks, validator balance
// snapshots, issuance, and job-progress checkpoints. Every write accepts an
// Executor so the sync core can choose between the pool and an
// in-transaction handle.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor is satisfied by both *pgxpool.Pool and pgx.Tx, letting every
// query function in this package run either directly against the pool or
// inside a caller-managed transaction.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Pool wraps a pgxpool.Pool and applies the application_name convention
// the upstream project uses to tell connections apart in pg_stat_activity.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens a connection pool against dsn, tagged with name.
func NewPool(ctx context.Context, dsn, name string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing db dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = name
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging db: %w", err)
	}
	return &Pool{pool}, nil
}

// WithTransaction runs fn inside a single transaction, committing on
// success and rolling back if fn returns an error or panics.
func WithTransaction(ctx context.Context, pool *Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(tx)
	return err
}
