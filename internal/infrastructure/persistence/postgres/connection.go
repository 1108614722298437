// Package postgres provides PostgreSQL implementations of the domain
// repository interfaces using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/academy-hub/academy-lms/config"
	"github.com/academy-hub/academy-lms/pkg/logger"
	"github.com/academy-hub/academy-lms/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION
// ══════════════════════════════════════════════════════════════════════════════

// Connection wraps a pgx connection pool with transaction helpers.
type Connection struct {
	pool *pgxpool.Pool
	log  *logger.Logger
	cfg  config.DatabaseConfig
}

// Querier is the subset of pgx operations shared by pools and transactions.
// Repository methods accept it so the same code runs inside and outside
// a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect establishes a connection pool to PostgreSQL.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Connection, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to postgres",
		logger.Int("max_conns", cfg.MaxOpenConns),
		logger.Duration("conn_lifetime", cfg.ConnMaxLifetime),
	)

	return &Connection{pool: pool, log: log, cfg: cfg}, nil
}

// Pool returns the underlying connection pool.
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the connection pool.
func (c *Connection) Close() {
	c.pool.Close()
}

// Ping verifies the database is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// TxOptions configures a transaction.
type TxOptions struct {
	IsoLevel   pgx.TxIsoLevel
	AccessMode pgx.TxAccessMode
}

// DefaultTxOptions returns the default transaction options.
// ReadCommitted is enough for the invariants here: every check-then-act
// sequence is backed by a unique index that loses at most one of two racers.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (c *Connection) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return c.WithTxOptions(ctx, DefaultTxOptions(), fn)
}

// WithTxOptions runs fn inside a transaction with explicit options.
func (c *Connection) WithTxOptions(ctx context.Context, opts TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsoLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyTxError(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// classifyTxError tags transient SQL states (serialization failure,
// deadlock) as retryable so a retrier upstream runs the transaction again.
// Everything else passes through untouched, domain errors included.
func classifyTxError(err error) error {
	if IsSerializationFailure(err) {
		return retry.Retryable(err)
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// Optionally narrows to a specific constraint name.
func IsUniqueViolation(err error, constraint ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, name := range constraint {
		if pgErr.ConstraintName == name {
			return true
		}
	}
	return false
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// IsSerializationFailure reports whether err is a serialization failure or
// deadlock, both of which are safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFail || pgErr.Code == codeDeadlockDetected
}

// IsNoRows reports whether err means no rows were found.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
