package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/kirinyoku/tix-ledger/internal/address"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

// Write operations passed to a FaultFunc.
const (
	OpPut      = "put"
	OpCreateAt = "create_at"
)

// FaultFunc is consulted before every write inside an atomic scope. A
// non-nil error aborts the write as if the process died there.
type FaultFunc func(op string, addr address.Address) error

// Store keeps records in process memory. Atomic scopes run one at a time
// and buffer their writes until fn returns without error.
type Store struct {
	mu      sync.Mutex
	records map[address.Address][]byte
	fault   FaultFunc
}

type Option func(*Store)

func WithFault(f FaultFunc) Option {
	return func(s *Store) { s.fault = f }
}

func New(opts ...Option) *Store {
	s := &Store{records: make(map[address.Address][]byte)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetFault replaces the fault hook; nil disables injection.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) Get(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.records[addr]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(blob), true, nil
}

// Len reports how many addresses are occupied.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, recs repository.Records) error) error {
	const op = "memory.Store.Atomically"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &scope{store: s, writes: make(map[address.Address][]byte)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for addr, blob := range tx.writes {
		s.records[addr] = blob
	}

	return nil
}

// scope runs with Store.mu held.
type scope struct {
	store  *Store
	writes map[address.Address][]byte
}

func (t *scope) Get(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if blob, ok := t.writes[addr]; ok {
		return bytes.Clone(blob), true, nil
	}

	blob, ok := t.store.records[addr]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(blob), true, nil
}

func (t *scope) Put(ctx context.Context, addr address.Address, blob []byte) error {
	const op = "memory.scope.Put"

	if err := t.check(ctx, OpPut, addr); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	t.writes[addr] = bytes.Clone(blob)
	return nil
}

func (t *scope) CreateAt(ctx context.Context, addr address.Address, blob []byte) error {
	const op = "memory.scope.CreateAt"

	if err := t.check(ctx, OpCreateAt, addr); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, ok := t.writes[addr]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}
	if _, ok := t.store.records[addr]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	t.writes[addr] = bytes.Clone(blob)
	return nil
}

func (t *scope) check(ctx context.Context, op string, addr address.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.store.fault != nil {
		return t.store.fault(op, addr)
	}
	return nil
}
