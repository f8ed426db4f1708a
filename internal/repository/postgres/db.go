package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	DB
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// defaultTxAttempts bounds how often a transaction that lost a
// serialization race is replayed.
const defaultTxAttempts = 3

type Store struct {
	pool     Pool
	attempts int
}

func NewStore(pool Pool) *Store {
	return &Store{
		pool:     pool,
		attempts: defaultTxAttempts,
	}
}

// RunTx runs fn in a serializable transaction. Serialization failures and
// deadlocks replay fn from the start, so fn must not keep state across
// attempts.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTxOnce(ctx, txOpts, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	txOpts pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		committed = true
		return fmt.Errorf("commit: %w", err)
	}

	committed = true
	return nil
}

func (s *Store) Records() *RecordRepo { return &RecordRepo{pool: s.pool} }

func (s *Store) Get(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	return s.Records().Get(ctx, addr)
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, recs repository.Records) error) error {
	return s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		return fn(ctx, s.Records().With(tx))
	})
}
