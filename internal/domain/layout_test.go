package domain

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLayout(t *testing.T) {
	e := &Event{
		ID:                  4,
		Title:               "Go meetup",
		Description:         "talks",
		Organizer:           key(3),
		MaxParticipants:     50,
		CurrentParticipants: 7,
		TicketPrice:         1_000_000,
		IsActive:            true,
		CreatedAt:           -5,
	}

	blob, err := e.MarshalBinary()
	require.NoError(t, err)

	d := Discriminator(KindEvent)
	assert.Equal(t, d[:], blob[:DiscriminatorSize])

	// id, then the length-prefixed title.
	off := DiscriminatorSize
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(blob[off:]))
	off += 4
	assert.Equal(t, uint32(len(e.Title)), binary.LittleEndian.Uint32(blob[off:]))
	off += 4
	assert.Equal(t, e.Title, string(blob[off:off+len(e.Title)]))

	wantLen := DiscriminatorSize + 4 + 4 + len(e.Title) + 4 + len(e.Description) + KeySize + 4 + 4 + 8 + 1 + 8
	assert.Len(t, blob, wantLen)

	var got Event
	require.NoError(t, got.UnmarshalBinary(blob))
	assert.Equal(t, *e, got)

	kind, ok := KindOf(blob)
	assert.True(t, ok)
	assert.Equal(t, KindEvent, kind)
}

func TestCatalogAndTicketLayout(t *testing.T) {
	c := &Catalog{Authority: key(1), TotalEvents: 9}
	cb, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, cb, DiscriminatorSize+KeySize+4)

	var gotC Catalog
	require.NoError(t, gotC.UnmarshalBinary(cb))
	assert.Equal(t, *c, gotC)

	tk := &Ticket{EventID: 2, Owner: key(5), PurchaseTime: 1234, IsUsed: true}
	tb, err := tk.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, tb, DiscriminatorSize+4+KeySize+8+1)

	var gotT Ticket
	require.NoError(t, gotT.UnmarshalBinary(tb))
	assert.Equal(t, *tk, gotT)
}

func TestLayoutRejectsMalformed(t *testing.T) {
	tk := &Ticket{EventID: 2, Owner: key(5)}
	tb, err := tk.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		blob []byte
	}{
		{"Empty", nil},
		{"Truncated", tb[:len(tb)-1]},
		{"Trailing", append(append([]byte{}, tb...), 0)},
		{"BadBool", append(append([]byte{}, tb[:len(tb)-1]...), 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Ticket
			assert.ErrorIs(t, got.UnmarshalBinary(tt.blob), ErrMalformedRecord)
		})
	}

	t.Run("WrongKind", func(t *testing.T) {
		var c Catalog
		assert.ErrorIs(t, c.UnmarshalBinary(tb), ErrMalformedRecord)
	})

	t.Run("OversizedString", func(t *testing.T) {
		e := &Event{Title: "x"}
		blob, err := e.MarshalBinary()
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(blob[DiscriminatorSize+4:], MaxTitleLen+1)

		var got Event
		assert.ErrorIs(t, got.UnmarshalBinary(blob), ErrMalformedRecord)
	})
}

func TestEventMarshalRejectsLongText(t *testing.T) {
	e := &Event{Title: strings.Repeat("x", MaxTitleLen+1)}
	_, err := e.MarshalBinary()
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestDiscriminatorsDistinct(t *testing.T) {
	assert.NotEqual(t, Discriminator(KindCatalog), Discriminator(KindEvent))
	assert.NotEqual(t, Discriminator(KindEvent), Discriminator(KindTicket))
	assert.NotEqual(t, Discriminator(KindCatalog), Discriminator(KindTicket))
}
