package ledger

import (
	"context"
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

// Dispatch routes a decoded instruction to its transition. The instruction
// signer acts as the caller; v decides whether that key actually signed.
// For use_ticket a zero Owner means the signer's own ticket.
func (s *Service) Dispatch(ctx context.Context, v domain.Verifier, instr *domain.Instruction) (*domain.Result, error) {
	const op = "service.ledger.Dispatch"

	switch instr.Op {
	case domain.OpInitialize:
		catalog, err := s.Initialize(ctx, v, instr.Signer)
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			Op:      instr.Op,
			Address: address.Catalog().String(),
			Catalog: catalog,
		}, nil

	case domain.OpCreateEvent:
		event, err := s.createEvent(ctx, v, domain.NewEventParams{
			Organizer:       instr.Signer,
			Title:           instr.Title,
			Description:     instr.Description,
			MaxParticipants: instr.MaxParticipants,
			TicketPrice:     instr.TicketPrice,
		})
		if err != nil {
			return nil, err
		}
		id := event.ID
		return &domain.Result{
			Op:      instr.Op,
			Address: address.Event(id).String(),
			EventID: &id,
			Event:   event,
		}, nil

	case domain.OpBuyTicket:
		ticket, event, err := s.buyTicket(ctx, v, instr.Signer, instr.EventID)
		if err != nil {
			return nil, err
		}
		id := ticket.EventID
		return &domain.Result{
			Op:      instr.Op,
			Address: address.TicketFor(id, ticket.Owner).String(),
			EventID: &id,
			Event:   event,
			Ticket:  ticket,
		}, nil

	case domain.OpUseTicket:
		owner := instr.Owner
		if owner.IsZero() {
			owner = instr.Signer
		}
		ticket, err := s.UseTicket(ctx, v, instr.Signer, instr.EventID, owner)
		if err != nil {
			return nil, err
		}
		id := ticket.EventID
		return &domain.Result{
			Op:      instr.Op,
			Address: address.TicketFor(id, owner).String(),
			EventID: &id,
			Ticket:  ticket,
		}, nil

	default:
		return nil, fmt.Errorf("%s:%w: %q", op, ErrUnknownOp, instr.Op)
	}
}
