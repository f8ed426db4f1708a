package domain

// Op names one of the ledger's state transitions.
type Op string

const (
	OpInitialize  Op = "initialize"
	OpCreateEvent Op = "create_event"
	OpBuyTicket   Op = "buy_ticket"
	OpUseTicket   Op = "use_ticket"
)

func (o Op) Valid() bool {
	switch o {
	case OpInitialize, OpCreateEvent, OpBuyTicket, OpUseTicket:
		return true
	}
	return false
}

// Instruction is a decoded caller request: one operation, the key acting
// for it and the operation's arguments. Fields an operation does not use
// are left zero.
type Instruction struct {
	Op     Op  `cbor:"1,keyasint" json:"op"`
	Signer Key `cbor:"2,keyasint" json:"signer"`

	// Nonce makes otherwise identical instructions sign to different bytes.
	Nonce uint64 `cbor:"3,keyasint" json:"nonce"`

	Title           string `cbor:"4,keyasint,omitempty" json:"title,omitempty"`
	Description     string `cbor:"5,keyasint,omitempty" json:"description,omitempty"`
	MaxParticipants uint32 `cbor:"6,keyasint,omitempty" json:"max_participants,omitempty"`
	TicketPrice     uint64 `cbor:"7,keyasint,omitempty" json:"ticket_price,omitempty"`

	EventID uint32 `cbor:"8,keyasint,omitempty" json:"event_id,omitempty"`

	// Owner names the ticket holder for use_ticket.
	Owner Key `cbor:"9,keyasint,omitempty" json:"owner,omitempty"`
}

// Result is what a successful transition reports back to the caller.
type Result struct {
	Op      Op       `cbor:"1,keyasint" json:"op"`
	Address string   `cbor:"2,keyasint" json:"address"`
	EventID *uint32  `cbor:"3,keyasint,omitempty" json:"event_id,omitempty"`
	Catalog *Catalog `cbor:"4,keyasint,omitempty" json:"catalog,omitempty"`
	Event   *Event   `cbor:"5,keyasint,omitempty" json:"event,omitempty"`
	Ticket  *Ticket  `cbor:"6,keyasint,omitempty" json:"ticket,omitempty"`
}
