package identity

import (
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

// Call is the verifier for one request whose envelope signature checked out.
type Call struct {
	signer domain.Key
}

func (c *Call) IsSignerOf(key domain.Key) bool {
	return c != nil && c.signer == key
}

// KeySet is a verifier for in-process callers that already proved control
// of the keys it holds.
type KeySet map[domain.Key]struct{}

func Trusted(keys ...domain.Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) IsSignerOf(key domain.Key) bool {
	_, ok := s[key]
	return ok
}
