package query

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
)

type Config struct {
	CatalogTTL time.Duration
	EventTTL   time.Duration
	TicketTTL  time.Duration
}

type Service struct {
	store repository.Reader
	cache *redisrepo.Cache
	cfg   Config
}

// CatalogView is the catalog together with the address it lives at.
type CatalogView struct {
	Address string `json:"address"`
	domain.Catalog
}

type EventView struct {
	Address   string `json:"address"`
	SeatsLeft uint32 `json:"seats_left"`
	domain.Event
}

type TicketView struct {
	Address      string `json:"address"`
	EventAddress string `json:"event_address"`
	domain.Ticket
}

func New(store repository.Reader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = 30 * time.Second
	}

	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 15 * time.Second
	}

	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// Catalog retrieves the catalog record, utilizing the cache.
//
// Returns:
//   - error: domain.ErrNotInitialized if the catalog does not exist.
func (s *Service) Catalog(ctx context.Context) (*CatalogView, error) {
	const op = "service.query.Catalog"

	view, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyCatalogView(),
		s.cfg.CatalogTTL,
		func(ctx context.Context) (CatalogView, error) {
			addr := address.Catalog()

			var c domain.Catalog
			if err := s.load(ctx, addr, &c, domain.ErrNotInitialized); err != nil {
				return CatalogView{}, err
			}

			return CatalogView{Address: addr.String(), Catalog: c}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &view, nil
}

// Event retrieves an event by its id, utilizing the cache.
//
// Returns:
//   - error: domain.ErrEventNotFound if the event does not exist.
func (s *Service) Event(ctx context.Context, id uint32) (*EventView, error) {
	const op = "service.query.Event"

	view, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventView(id),
		s.cfg.EventTTL,
		func(ctx context.Context) (EventView, error) {
			addr := address.Event(id)

			var e domain.Event
			if err := s.load(ctx, addr, &e, domain.ErrEventNotFound); err != nil {
				return EventView{}, err
			}

			return EventView{Address: addr.String(), SeatsLeft: e.SeatsLeft(), Event: e}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &view, nil
}

// Ticket retrieves the ticket owner holds for an event, utilizing the cache.
//
// Returns:
//   - error: domain.ErrTicketNotFound if no such ticket exists.
func (s *Service) Ticket(ctx context.Context, eventID uint32, owner domain.Key) (*TicketView, error) {
	const op = "service.query.Ticket"

	view, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyTicketView(eventID, owner),
		s.cfg.TicketTTL,
		func(ctx context.Context) (TicketView, error) {
			eventAddr := address.Event(eventID)
			addr := address.Ticket(eventAddr, owner)

			var t domain.Ticket
			if err := s.load(ctx, addr, &t, domain.ErrTicketNotFound); err != nil {
				return TicketView{}, err
			}

			return TicketView{Address: addr.String(), EventAddress: eventAddr.String(), Ticket: t}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &view, nil
}

type record interface {
	UnmarshalBinary([]byte) error
}

func (s *Service) load(ctx context.Context, addr address.Address, into record, missing error) error {
	blob, ok, err := s.store.Get(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		return missing
	}
	return into.UnmarshalBinary(blob)
}
