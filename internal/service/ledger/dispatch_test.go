package ledger

import (
	"context"
	"testing"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	res, err := svc.Dispatch(ctx, identity.Trusted(authority), &domain.Instruction{Op: domain.OpInitialize, Signer: authority})
	require.NoError(t, err)
	assert.Equal(t, address.Catalog().String(), res.Address)
	require.NotNil(t, res.Catalog)
	assert.Equal(t, authority, res.Catalog.Authority)

	res, err = svc.Dispatch(ctx, identity.Trusted(organizer), &domain.Instruction{
		Op:              domain.OpCreateEvent,
		Signer:          organizer,
		Title:           "Meetup",
		MaxParticipants: 1,
		TicketPrice:     10,
	})
	require.NoError(t, err)
	require.NotNil(t, res.EventID)
	assert.Equal(t, uint32(0), *res.EventID)
	assert.Equal(t, address.Event(0).String(), res.Address)
	assert.Equal(t, "Meetup", res.Event.Title)

	res, err = svc.Dispatch(ctx, identity.Trusted(alice), &domain.Instruction{Op: domain.OpBuyTicket, Signer: alice, EventID: 0})
	require.NoError(t, err)
	assert.Equal(t, address.TicketFor(0, alice).String(), res.Address)
	assert.Equal(t, uint32(1), res.Event.CurrentParticipants)
	assert.Equal(t, alice, res.Ticket.Owner)

	// Zero owner defaults to the signer's own ticket.
	res, err = svc.Dispatch(ctx, identity.Trusted(alice), &domain.Instruction{Op: domain.OpUseTicket, Signer: alice, EventID: 0})
	require.NoError(t, err)
	assert.True(t, res.Ticket.IsUsed)

	_, err = svc.Dispatch(ctx, identity.Trusted(alice), &domain.Instruction{Op: "refund", Signer: alice})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(domain.ErrEventFull))
	assert.True(t, IsRejection(&domain.FieldTooLongError{Field: "title"}))
	assert.False(t, IsRejection(domain.ErrMalformedRecord))
	assert.False(t, IsRejection(nil))
}
