package uow

import (
	"context"

	"github.com/kirinyoku/tix-ledger/internal/repository"
)

// AfterCommit is a function that runs after a successful commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work over a record store.
type UoW struct {
	store repository.Atomic
}

func NewUoW(store repository.Atomic) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside one atomic scope. After a successful commit it executes
// the after-commit hooks registered by the final attempt, in order.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, recs repository.Records, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.Atomically(ctx, func(ctx context.Context, recs repository.Records) error {
		// The store may replay fn after a serialization failure.
		hooks = hooks[:0]
		return fn(ctx, recs, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
