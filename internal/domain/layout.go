package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// DiscriminatorSize is the length of the tag that prefixes every stored record.
const DiscriminatorSize = 8

type Kind string

const (
	KindCatalog Kind = "Catalog"
	KindEvent   Kind = "Event"
	KindTicket  Kind = "Ticket"
)

var discriminators = map[Kind][DiscriminatorSize]byte{
	KindCatalog: discriminator(KindCatalog),
	KindEvent:   discriminator(KindEvent),
	KindTicket:  discriminator(KindTicket),
}

func discriminator(k Kind) [DiscriminatorSize]byte {
	sum := blake3.Sum256([]byte("record:" + string(k)))

	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Discriminator returns the tag written in front of records of kind k.
func Discriminator(k Kind) [DiscriminatorSize]byte {
	return discriminators[k]
}

// KindOf identifies the record kind of a stored blob by its tag.
func KindOf(blob []byte) (Kind, bool) {
	if len(blob) < DiscriminatorSize {
		return "", false
	}

	for k, d := range discriminators {
		if [DiscriminatorSize]byte(blob[:DiscriminatorSize]) == d {
			return k, true
		}
	}

	return "", false
}

func (c *Catalog) MarshalBinary() ([]byte, error) {
	w := newRecordWriter(KindCatalog, DiscriminatorSize+KeySize+4)
	w.key(c.Authority)
	w.u32(c.TotalEvents)
	return w.buf, nil
}

func (c *Catalog) UnmarshalBinary(data []byte) error {
	r := newRecordReader(KindCatalog, data)
	var out Catalog
	out.Authority = r.key()
	out.TotalEvents = r.u32()
	if err := r.finish(); err != nil {
		return err
	}

	*c = out
	return nil
}

func (e *Event) MarshalBinary() ([]byte, error) {
	if err := ValidateEventText(e.Title, e.Description); err != nil {
		return nil, err
	}

	w := newRecordWriter(KindEvent, DiscriminatorSize+4+4+len(e.Title)+4+len(e.Description)+KeySize+4+4+8+1+8)
	w.u32(e.ID)
	w.str(e.Title)
	w.str(e.Description)
	w.key(e.Organizer)
	w.u32(e.MaxParticipants)
	w.u32(e.CurrentParticipants)
	w.u64(e.TicketPrice)
	w.bool(e.IsActive)
	w.i64(e.CreatedAt)
	return w.buf, nil
}

func (e *Event) UnmarshalBinary(data []byte) error {
	r := newRecordReader(KindEvent, data)
	var out Event
	out.ID = r.u32()
	out.Title = r.str(MaxTitleLen)
	out.Description = r.str(MaxDescriptionLen)
	out.Organizer = r.key()
	out.MaxParticipants = r.u32()
	out.CurrentParticipants = r.u32()
	out.TicketPrice = r.u64()
	out.IsActive = r.bool()
	out.CreatedAt = r.i64()
	if err := r.finish(); err != nil {
		return err
	}

	*e = out
	return nil
}

func (t *Ticket) MarshalBinary() ([]byte, error) {
	w := newRecordWriter(KindTicket, DiscriminatorSize+4+KeySize+8+1)
	w.u32(t.EventID)
	w.key(t.Owner)
	w.i64(t.PurchaseTime)
	w.bool(t.IsUsed)
	return w.buf, nil
}

func (t *Ticket) UnmarshalBinary(data []byte) error {
	r := newRecordReader(KindTicket, data)
	var out Ticket
	out.EventID = r.u32()
	out.Owner = r.key()
	out.PurchaseTime = r.i64()
	out.IsUsed = r.bool()
	if err := r.finish(); err != nil {
		return err
	}

	*t = out
	return nil
}

type recordWriter struct {
	buf []byte
}

func newRecordWriter(k Kind, size int) *recordWriter {
	d := Discriminator(k)
	buf := make([]byte, 0, size)
	return &recordWriter{buf: append(buf, d[:]...)}
}

func (w *recordWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *recordWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *recordWriter) i64(v int64)  { w.u64(uint64(v)) }
func (w *recordWriter) key(k Key)    { w.buf = append(w.buf, k[:]...) }

func (w *recordWriter) bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *recordWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// recordReader decodes fields in order. The first failure sticks and
// every later read returns a zero value.
type recordReader struct {
	kind Kind
	data []byte
	off  int
	err  error
}

func newRecordReader(k Kind, data []byte) *recordReader {
	r := &recordReader{kind: k, data: data}

	d := Discriminator(k)
	if len(data) < DiscriminatorSize || [DiscriminatorSize]byte(data[:DiscriminatorSize]) != d {
		r.err = fmt.Errorf("%w: not a %s record", ErrMalformedRecord, k)
		return r
	}

	r.off = DiscriminatorSize
	return r
}

func (r *recordReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: %s record truncated at offset %d", ErrMalformedRecord, r.kind, r.off)
		return nil
	}

	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *recordReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *recordReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *recordReader) i64() int64 { return int64(r.u64()) }

func (r *recordReader) key() Key {
	var k Key
	copy(k[:], r.take(KeySize))
	return k
}

func (r *recordReader) bool() bool {
	b := r.take(1)
	if b == nil {
		return false
	}

	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = fmt.Errorf("%w: %s record has invalid bool byte %#x", ErrMalformedRecord, r.kind, b[0])
		return false
	}
}

func (r *recordReader) str(max int) string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if int64(n) > int64(max) {
		r.err = fmt.Errorf("%w: %s record string of %d bytes exceeds %d", ErrMalformedRecord, r.kind, n, max)
		return ""
	}
	return string(r.take(int(n)))
}

func (r *recordReader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %s record has %d trailing bytes", ErrMalformedRecord, r.kind, len(r.data)-r.off)
	}
	return nil
}
