package address

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/zeebo/blake3"
)

const Size = 32

// Address locates a record in the store.
type Address [Size]byte

// domainKey separates address hashes from every other BLAKE3 use in the
// module. Changing it moves every record.
var domainKey = [32]byte{
	't', 'i', 'x', 'l', 'e', 'd', 'g', 'e', 'r', '.', 'a', 'd', 'd', 'r', 'e', 's', 's',
}

const (
	kindCatalog = "catalog"
	kindEvent   = "event"
	kindTicket  = "ticket"
)

// Derive hashes a record kind and its key parts into an address. Every
// input is length-prefixed, so distinct part lists never collide by
// concatenation.
func Derive(kind string, parts ...[]byte) Address {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("address: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var n [4]byte
	write := func(b []byte) {
		binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
		_, _ = hasher.Write(n[:])
		_, _ = hasher.Write(b)
	}

	write([]byte(kind))
	for _, p := range parts {
		write(p)
	}

	var a Address
	copy(a[:], hasher.Sum(nil))
	return a
}

func Catalog() Address {
	return Derive(kindCatalog)
}

func Event(id uint32) Address {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return Derive(kindEvent, b[:])
}

func Ticket(event Address, buyer domain.Key) Address {
	return Derive(kindTicket, event[:], buyer[:])
}

// TicketFor derives the ticket address straight from the event id.
func TicketFor(eventID uint32, buyer domain.Key) Address {
	return Ticket(Event(eventID), buyer)
}

func Parse(s string) (Address, error) {
	var a Address

	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != Size {
		return a, fmt.Errorf("parse address: got %d bytes, want %d", len(b), Size)
	}

	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
