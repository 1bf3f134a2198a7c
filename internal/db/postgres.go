package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/noteverse/internal/config"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

const (
	dialTimeout = 10 * time.Second
	txTimeout   = 30 * time.Second
)

// PostgresDB wraps the pgx pool shared by every repository
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// poolConfig turns the database section into pgxpool settings
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.GetPostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	if n := cfg.Database.MaxConns; n > 0 {
		pc.MaxConns = int32(n)
	}
	if n := cfg.Database.MinConns; n > 0 && int32(n) <= pc.MaxConns {
		pc.MinConns = int32(n)
	}
	pc.MaxConnLifetime = config.Duration(cfg.Database.ConnMaxLifetime, time.Hour)
	pc.HealthCheckPeriod = time.Minute
	return pc, nil
}

// NewPostgresDB opens the pool and pings it before handing it out
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	return &PostgresDB{Pool: pool}, nil
}

// Close releases every pooled connection
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Beginner starts transactions; *pgxpool.Pool and pgx.Tx both qualify,
// the latter as a savepoint.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Querier is what the repositories need from a connection. *pgxpool.Pool
// satisfies it, as do pgx.Tx and pgxmock pools.
type Querier interface {
	Beginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// WithTransaction runs fn inside a transaction on conn. fn's error, or a
// panic, rolls back; otherwise the transaction commits. Calls without a
// deadline get txTimeout.
func WithTransaction(ctx context.Context, conn Beginner, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, txTimeout)
		defer cancel()
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// rollback gets its own context so a cancelled request still releases the tx
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			if err != nil {
				err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
