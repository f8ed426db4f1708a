package domain

import (
	"encoding/hex"
	"fmt"
	"math"
)

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)

// KeySize is the size of an identity key (an Ed25519 public key).
const KeySize = 32

// Key is a caller's identity key.
type Key [KeySize]byte

// ParseKey decodes a hex-encoded identity key.
func ParseKey(s string) (Key, error) {
	var k Key

	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("parse key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("parse key: got %d bytes, want %d", len(b), KeySize)
	}

	copy(k[:], b)
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Verifier confirms, for the current call, which keys signed it.
type Verifier interface {
	IsSignerOf(key Key) bool
}

// Catalog is the single global record that allocates event ids.
type Catalog struct {
	Authority   Key    `json:"authority"`
	TotalEvents uint32 `json:"total_events"`
}

func NewCatalog(authority Key) *Catalog {
	return &Catalog{Authority: authority}
}

// AllocateEventID returns the id for the next event and advances the counter.
func (c *Catalog) AllocateEventID() (uint32, error) {
	if c.TotalEvents == math.MaxUint32 {
		return 0, ErrCatalogExhausted
	}

	id := c.TotalEvents
	c.TotalEvents++

	return id, nil
}

type Event struct {
	ID                  uint32 `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Organizer           Key    `json:"organizer"`
	MaxParticipants     uint32 `json:"max_participants"`
	CurrentParticipants uint32 `json:"current_participants"`
	TicketPrice         uint64 `json:"ticket_price"`
	IsActive            bool   `json:"is_active"`
	CreatedAt           int64  `json:"created_at"`
}

type NewEventParams struct {
	Organizer       Key
	Title           string
	Description     string
	MaxParticipants uint32
	TicketPrice     uint64
}

// ValidateEventText rejects titles and descriptions that do not fit the
// fixed-capacity record layout. Lengths are counted in bytes.
func ValidateEventText(title, description string) error {
	if len(title) > MaxTitleLen {
		return &FieldTooLongError{Field: "title", Length: len(title), Max: MaxTitleLen}
	}

	if len(description) > MaxDescriptionLen {
		return &FieldTooLongError{Field: "description", Length: len(description), Max: MaxDescriptionLen}
	}

	return nil
}

func NewEvent(id uint32, p NewEventParams, now int64) (*Event, error) {
	if err := ValidateEventText(p.Title, p.Description); err != nil {
		return nil, err
	}

	return &Event{
		ID:              id,
		Title:           p.Title,
		Description:     p.Description,
		Organizer:       p.Organizer,
		MaxParticipants: p.MaxParticipants,
		TicketPrice:     p.TicketPrice,
		IsActive:        true,
		CreatedAt:       now,
	}, nil
}

// CanAdmit reports why another participant cannot be admitted, if any.
func (e *Event) CanAdmit() error {
	if !e.IsActive {
		return ErrEventNotActive
	}

	if e.CurrentParticipants >= e.MaxParticipants {
		return ErrEventFull
	}

	return nil
}

func (e *Event) Admit() error {
	if err := e.CanAdmit(); err != nil {
		return err
	}

	e.CurrentParticipants++
	return nil
}

func (e *Event) SeatsLeft() uint32 {
	if e.CurrentParticipants >= e.MaxParticipants {
		return 0
	}
	return e.MaxParticipants - e.CurrentParticipants
}

type Ticket struct {
	EventID      uint32 `json:"event_id"`
	Owner        Key    `json:"owner"`
	PurchaseTime int64  `json:"purchase_time"`
	IsUsed       bool   `json:"is_used"`
}

func NewTicket(eventID uint32, owner Key, now int64) *Ticket {
	return &Ticket{
		EventID:      eventID,
		Owner:        owner,
		PurchaseTime: now,
	}
}

// Redeem marks the ticket used. A used ticket is rejected before the
// caller is looked at; only the verified owner may redeem an unused one.
func (t *Ticket) Redeem(caller Key, v Verifier) error {
	if t.IsUsed {
		return ErrTicketAlreadyUsed
	}

	if caller != t.Owner || v == nil || !v.IsSignerOf(caller) {
		return ErrNotTicketOwner
	}

	t.IsUsed = true
	return nil
}
