package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/codec"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/zeebo/blake3"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrBadSignature      = errors.New("signature does not verify")
	ErrSignerMismatch    = errors.New("instruction signer does not match envelope signer")
	ErrUnknownOp         = errors.New("unknown operation")
)

// Envelope carries one CBOR-encoded instruction and the Ed25519 signature
// of its exact bytes.
type Envelope struct {
	Instruction codec.RawMessage `cbor:"1,keyasint"`
	Signer      domain.Key       `cbor:"2,keyasint"`
	Signature   []byte           `cbor:"3,keyasint"`
}

// Sign encodes instr with private as its signer.
func Sign(private ed25519.PrivateKey, instr domain.Instruction) (*Envelope, error) {
	const op = "identity.Sign"

	signer, err := KeyOf(private.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	instr.Signer = signer

	payload, err := codec.Marshal(instr)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Envelope{
		Instruction: payload,
		Signer:      signer,
		Signature:   ed25519.Sign(private, payload),
	}, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return &env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	return codec.Marshal(e)
}

// Digest identifies the envelope by its signature. Ed25519 signatures are
// deterministic, so a replayed envelope has the same digest.
func (e *Envelope) Digest() string {
	sum := blake3.Sum256(e.Signature)
	return hex.EncodeToString(sum[:])
}

// Open verifies the envelope and decodes its instruction. The returned
// Call confirms the envelope's signer for the rest of the request.
func Open(e *Envelope) (*domain.Instruction, *Call, error) {
	const op = "identity.Open"

	if len(e.Signature) != ed25519.SignatureSize {
		return nil, nil, fmt.Errorf("%s:%w", op, ErrBadSignature)
	}

	if !ed25519.Verify(ed25519.PublicKey(e.Signer[:]), e.Instruction, e.Signature) {
		return nil, nil, fmt.Errorf("%s:%w", op, ErrBadSignature)
	}

	var instr domain.Instruction
	if err := codec.Unmarshal(e.Instruction, &instr); err != nil {
		return nil, nil, fmt.Errorf("%s:%w: %v", op, ErrMalformedEnvelope, err)
	}

	if instr.Signer != e.Signer {
		return nil, nil, fmt.Errorf("%s:%w", op, ErrSignerMismatch)
	}

	if !instr.Op.Valid() {
		return nil, nil, fmt.Errorf("%s:%w: %q", op, ErrUnknownOp, instr.Op)
	}

	return &instr, &Call{signer: e.Signer}, nil
}
