package repository

import (
	"context"

	"github.com/kirinyoku/tix-ledger/internal/address"
)

// Reader looks records up by address outside any atomic scope.
type Reader interface {
	// Get returns the stored blob, or ok=false when the address is empty.
	Get(ctx context.Context, addr address.Address) (blob []byte, ok bool, err error)
}

// Records is the record store as seen from inside an atomic scope.
type Records interface {
	Reader

	// Put stores blob at addr, replacing whatever is there.
	Put(ctx context.Context, addr address.Address, blob []byte) error

	// CreateAt stores blob at addr and fails with ErrConflict if the
	// address is already occupied.
	CreateAt(ctx context.Context, addr address.Address, blob []byte) error
}

// Atomic runs fn as one unit: either every write fn makes is applied or
// none is. The store serializes scopes that touch the same addresses.
type Atomic interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, recs Records) error) error
}

// Store is a complete record store adapter.
type Store interface {
	Reader
	Atomic
}
