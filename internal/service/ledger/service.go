package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/uow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Options struct {
	Clock    clock.Clock
	Observer metrics.Observer
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Service applies the four ledger transitions. Every call runs in one
// atomic scope of the underlying store.
type Service struct {
	uow      *uow.UoW
	cache    *redisrepo.Cache
	pubsub   *redisrepo.RecordsPubSub
	clock    clock.Clock
	observer metrics.Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New builds the service. cache and pubsub may be nil.
func New(
	store repository.Atomic,
	cache *redisrepo.Cache,
	pubsub *redisrepo.RecordsPubSub,
	opts Options,
) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}

	if opts.Observer == nil {
		opts.Observer = metrics.Nop()
	}

	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("ledger")
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		uow:      uow.NewUoW(store),
		cache:    cache,
		pubsub:   pubsub,
		clock:    opts.Clock,
		observer: opts.Observer,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
	}
}

// Initialize creates the catalog with caller as its authority.
//
// Returns:
//   - error: domain.ErrAlreadyInitialized if the catalog exists.
//   - error: domain.ErrSignatureRequired if v does not confirm caller.
func (s *Service) Initialize(ctx context.Context, v domain.Verifier, caller domain.Key) (*domain.Catalog, error) {
	const op = "service.ledger.Initialize"

	var catalog *domain.Catalog
	err := s.observe(ctx, domain.OpInitialize, func(ctx context.Context) error {
		if !verifies(v, caller) {
			return domain.ErrSignatureRequired
		}

		return s.uow.Do(ctx, func(ctx context.Context, recs repository.Records, after func(uow.AfterCommit)) error {
			catalog = domain.NewCatalog(caller)

			blob, err := catalog.MarshalBinary()
			if err != nil {
				return err
			}

			addr := address.Catalog()
			if err := recs.CreateAt(ctx, addr, blob); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return domain.ErrAlreadyInitialized
				}
				return err
			}

			s.announce(after, redisrepo.CatalogChanged(addr.String()))
			return nil
		})
	}, attribute.String("ledger.authority", caller.String()))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return catalog, nil
}

// CreateEvent allocates the next event id from the catalog and creates the
// event under it. The event and the advanced counter commit together.
//
// Returns:
//   - uint32: the new event's id.
//   - error: domain.ErrFieldTooLong if the title or description is too long.
//   - error: domain.ErrNotInitialized if there is no catalog.
func (s *Service) CreateEvent(ctx context.Context, v domain.Verifier, p domain.NewEventParams) (uint32, error) {
	event, err := s.createEvent(ctx, v, p)
	if err != nil {
		return 0, err
	}
	return event.ID, nil
}

func (s *Service) createEvent(ctx context.Context, v domain.Verifier, p domain.NewEventParams) (*domain.Event, error) {
	const op = "service.ledger.CreateEvent"

	var event *domain.Event
	err := s.observe(ctx, domain.OpCreateEvent, func(ctx context.Context) error {
		if !verifies(v, p.Organizer) {
			return domain.ErrSignatureRequired
		}

		if err := domain.ValidateEventText(p.Title, p.Description); err != nil {
			return err
		}

		return s.uow.Do(ctx, func(ctx context.Context, recs repository.Records, after func(uow.AfterCommit)) error {
			catalogAddr := address.Catalog()

			catalog, err := loadCatalog(ctx, recs, catalogAddr)
			if err != nil {
				return err
			}

			id, err := catalog.AllocateEventID()
			if err != nil {
				return err
			}

			event, err = domain.NewEvent(id, p, clock.Unix(s.clock))
			if err != nil {
				return err
			}

			eventBlob, err := event.MarshalBinary()
			if err != nil {
				return err
			}

			catalogBlob, err := catalog.MarshalBinary()
			if err != nil {
				return err
			}

			// The counter is the only allocator of event addresses, so an
			// occupied slot means the store is inconsistent.
			eventAddr := address.Event(id)
			if err := recs.CreateAt(ctx, eventAddr, eventBlob); err != nil {
				return fmt.Errorf("event %d: %w", id, err)
			}

			if err := recs.Put(ctx, catalogAddr, catalogBlob); err != nil {
				return err
			}

			s.announce(after, redisrepo.CatalogChanged(catalogAddr.String()))
			s.announce(after, redisrepo.EventChanged(eventAddr.String(), id))
			return nil
		})
	}, attribute.String("ledger.organizer", p.Organizer.String()))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return event, nil
}

// BuyTicket issues buyer a ticket for the event and takes one seat. No
// payment is settled; the event's price is informational.
//
// Returns:
//   - error: domain.ErrEventNotFound if the event does not exist.
//   - error: domain.ErrEventNotActive or domain.ErrEventFull if the event
//     cannot admit anyone else.
//   - error: domain.ErrDuplicatePurchase if buyer already holds a ticket.
func (s *Service) BuyTicket(ctx context.Context, v domain.Verifier, buyer domain.Key, eventID uint32) (*domain.Ticket, error) {
	ticket, _, err := s.buyTicket(ctx, v, buyer, eventID)
	return ticket, err
}

func (s *Service) buyTicket(ctx context.Context, v domain.Verifier, buyer domain.Key, eventID uint32) (*domain.Ticket, *domain.Event, error) {
	const op = "service.ledger.BuyTicket"

	var (
		ticket *domain.Ticket
		event  *domain.Event
	)
	err := s.observe(ctx, domain.OpBuyTicket, func(ctx context.Context) error {
		if !verifies(v, buyer) {
			return domain.ErrSignatureRequired
		}

		return s.uow.Do(ctx, func(ctx context.Context, recs repository.Records, after func(uow.AfterCommit)) error {
			eventAddr := address.Event(eventID)

			var err error
			event, err = loadEvent(ctx, recs, eventAddr)
			if err != nil {
				return err
			}

			ticket = domain.NewTicket(event.ID, buyer, clock.Unix(s.clock))

			ticketBlob, err := ticket.MarshalBinary()
			if err != nil {
				return err
			}

			// A buyer who already holds a ticket is told so even when the
			// event has filled up since. The scope discards this write if
			// the event turns the buyer away below.
			ticketAddr := address.Ticket(eventAddr, buyer)
			if err := recs.CreateAt(ctx, ticketAddr, ticketBlob); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return domain.ErrDuplicatePurchase
				}
				return err
			}

			if err := event.Admit(); err != nil {
				return err
			}

			eventBlob, err := event.MarshalBinary()
			if err != nil {
				return err
			}

			if err := recs.Put(ctx, eventAddr, eventBlob); err != nil {
				return err
			}

			s.announce(after, redisrepo.EventChanged(eventAddr.String(), event.ID))
			s.announce(after, redisrepo.TicketChanged(ticketAddr.String(), event.ID, buyer))
			after(func(context.Context) { s.observer.RecordTicketsSold(1) })
			return nil
		})
	}, attribute.Int64("ledger.event_id", int64(eventID)), attribute.String("ledger.buyer", buyer.String()))
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	return ticket, event, nil
}

// UseTicket redeems the ticket owner holds for the event. caller must be
// the owner and v must confirm caller signed.
//
// Returns:
//   - error: domain.ErrTicketNotFound if no such ticket exists.
//   - error: domain.ErrTicketAlreadyUsed if the ticket was redeemed before.
//   - error: domain.ErrNotTicketOwner if caller is not the verified owner.
func (s *Service) UseTicket(
	ctx context.Context,
	v domain.Verifier,
	caller domain.Key,
	eventID uint32,
	owner domain.Key,
) (*domain.Ticket, error) {
	const op = "service.ledger.UseTicket"

	var ticket *domain.Ticket
	err := s.observe(ctx, domain.OpUseTicket, func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, recs repository.Records, after func(uow.AfterCommit)) error {
			ticketAddr := address.TicketFor(eventID, owner)

			var err error
			ticket, err = loadTicket(ctx, recs, ticketAddr)
			if err != nil {
				return err
			}

			if err := ticket.Redeem(caller, v); err != nil {
				return err
			}

			blob, err := ticket.MarshalBinary()
			if err != nil {
				return err
			}

			if err := recs.Put(ctx, ticketAddr, blob); err != nil {
				return err
			}

			s.announce(after, redisrepo.TicketChanged(ticketAddr.String(), eventID, owner))
			return nil
		})
	}, attribute.Int64("ledger.event_id", int64(eventID)), attribute.String("ledger.owner", owner.String()))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return ticket, nil
}

func verifies(v domain.Verifier, key domain.Key) bool {
	return v != nil && v.IsSignerOf(key)
}

// announce schedules cache invalidation and a change notification for
// after the scope commits. Both are best effort.
func (s *Service) announce(after func(uow.AfterCommit), change redisrepo.RecordChange) {
	after(func(ctx context.Context) {
		if err := s.cache.Invalidate(ctx, change); err != nil {
			s.logger.Warn("cache invalidation failed", "address", change.Address, "error", err)
		}

		if err := s.pubsub.PublishRecordChanged(ctx, change); err != nil {
			s.logger.Warn("publish record change failed", "address", change.Address, "error", err)
		}
	})
}

// observe wraps one operation in a span, a metrics sample and a log line.
func (s *Service) observe(ctx context.Context, op domain.Op, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "ledger."+string(op), trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	logger := s.logger.With("op", op)
	for _, kv := range attrs {
		logger = logger.With(strings.TrimPrefix(string(kv.Key), "ledger."), kv.Value.Emit())
	}

	switch {
	case err == nil:
		s.observer.RecordOperation(string(op), elapsed, metrics.OutcomeOK)
		logger.Info("transition committed", "duration", elapsed)
	case IsRejection(err):
		s.observer.RecordOperation(string(op), elapsed, metrics.OutcomeRejected)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("transition rejected", "reason", err)
	default:
		s.observer.RecordOperation(string(op), elapsed, metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("transition failed", "error", err)
	}

	return err
}
