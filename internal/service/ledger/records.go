package ledger

import (
	"context"
	"errors"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

func loadCatalog(ctx context.Context, r repository.Reader, addr address.Address) (*domain.Catalog, error) {
	blob, ok, err := r.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotInitialized
	}

	var c domain.Catalog
	if err := c.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadEvent(ctx context.Context, r repository.Reader, addr address.Address) (*domain.Event, error) {
	blob, ok, err := r.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrEventNotFound
	}

	var e domain.Event
	if err := e.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return &e, nil
}

func loadTicket(ctx context.Context, r repository.Reader, addr address.Address) (*domain.Ticket, error) {
	blob, ok, err := r.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTicketNotFound
	}

	var t domain.Ticket
	if err := t.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return &t, nil
}

var rejections = []error{
	domain.ErrAlreadyInitialized,
	domain.ErrFieldTooLong,
	domain.ErrEventNotActive,
	domain.ErrEventFull,
	domain.ErrDuplicatePurchase,
	domain.ErrNotTicketOwner,
	domain.ErrTicketAlreadyUsed,
	domain.ErrCatalogExhausted,
	domain.ErrNotInitialized,
	domain.ErrEventNotFound,
	domain.ErrTicketNotFound,
	domain.ErrSignatureRequired,
}

// IsRejection reports whether err is a domain rejection rather than a
// store or infrastructure failure.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
