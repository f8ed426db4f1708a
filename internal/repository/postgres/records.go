package postgresrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

type RecordRepo struct {
	pool Pool
	db   DB
}

func (r *RecordRepo) With(db DB) *RecordRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RecordRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get loads the blob stored at addr. Inside a transaction the row is
// locked until commit.
//
// Returns:
//   - []byte, true: the stored blob.
//   - nil, false: nothing is stored at addr.
func (r *RecordRepo) Get(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	const op = "postgresrepo.RecordRepo.Get"

	query := `SELECT data FROM records WHERE address = $1`
	if r.db != nil {
		query += ` FOR UPDATE`
	}

	var blob []byte
	err := r.handle().QueryRow(ctx, query, addr.Bytes()).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wrapDBErr(op, err)
	}

	return blob, true, nil
}

// Put writes blob at addr, replacing any existing record.
func (r *RecordRepo) Put(ctx context.Context, addr address.Address, blob []byte) error {
	const op = "postgresrepo.RecordRepo.Put"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO records(address, kind, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE
		 SET data = EXCLUDED.data, kind = EXCLUDED.kind, updated_at = now()`,
		addr.Bytes(), kindLabel(blob), blob,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// CreateAt writes blob at addr only if the address is free.
//
// Returns:
//   - error: repository.ErrConflict if a record already exists at addr.
func (r *RecordRepo) CreateAt(ctx context.Context, addr address.Address, blob []byte) error {
	const op = "postgresrepo.RecordRepo.CreateAt"

	// ON CONFLICT DO NOTHING keeps the surrounding transaction usable,
	// unlike a raised unique_violation.
	tag, err := r.handle().Exec(ctx,
		`INSERT INTO records(address, kind, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO NOTHING`,
		addr.Bytes(), kindLabel(blob), blob,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrConflict)
	}

	return nil
}

func kindLabel(blob []byte) string {
	k, ok := domain.KindOf(blob)
	if !ok {
		return ""
	}
	return string(k)
}
