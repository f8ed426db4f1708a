package identity

import (
	"path/filepath"
	"testing"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndOpen(t *testing.T) {
	public, private, err := GenerateKeypair()
	require.NoError(t, err)
	signer, err := KeyOf(public)
	require.NoError(t, err)

	env, err := Sign(private, domain.Instruction{
		Op:              domain.OpCreateEvent,
		Nonce:           1,
		Title:           "Launch",
		MaxParticipants: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, signer, env.Signer)

	wire, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(wire)
	require.NoError(t, err)

	instr, call, err := Open(decoded)
	require.NoError(t, err)
	assert.Equal(t, domain.OpCreateEvent, instr.Op)
	assert.Equal(t, "Launch", instr.Title)
	assert.Equal(t, uint32(3), instr.MaxParticipants)
	assert.Equal(t, signer, instr.Signer)

	assert.True(t, call.IsSignerOf(signer))
	assert.False(t, call.IsSignerOf(domain.Key{}))
	assert.Equal(t, env.Digest(), decoded.Digest())
}

func TestOpenRejects(t *testing.T) {
	_, private, err := GenerateKeypair()
	require.NoError(t, err)
	otherPublic, _, err := GenerateKeypair()
	require.NoError(t, err)
	other, err := KeyOf(otherPublic)
	require.NoError(t, err)

	fresh := func() *Envelope {
		env, err := Sign(private, domain.Instruction{Op: domain.OpBuyTicket, EventID: 4})
		require.NoError(t, err)
		return env
	}

	t.Run("TamperedInstruction", func(t *testing.T) {
		env := fresh()
		env.Instruction = append([]byte{}, env.Instruction...)
		env.Instruction[len(env.Instruction)-1] ^= 0x01
		_, _, err := Open(env)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("ForeignSigner", func(t *testing.T) {
		env := fresh()
		env.Signer = other
		_, _, err := Open(env)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("ShortSignature", func(t *testing.T) {
		env := fresh()
		env.Signature = env.Signature[:10]
		_, _, err := Open(env)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("UnknownOp", func(t *testing.T) {
		env, err := Sign(private, domain.Instruction{Op: "refund"})
		require.NoError(t, err)
		_, _, err = Open(env)
		assert.ErrorIs(t, err, ErrUnknownOp)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte{0xff, 0x00})
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})
}

func TestKeySet(t *testing.T) {
	var a, b domain.Key
	a[0], b[0] = 1, 2

	s := Trusted(a)
	assert.True(t, s.IsSignerOf(a))
	assert.False(t, s.IsSignerOf(b))

	var nilCall *Call
	assert.False(t, nilCall.IsSignerOf(a))
}

func TestLoadOrGenerateKeypair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signer.key")

	first, created, err := LoadOrGenerateKeypair(path)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := LoadOrGenerateKeypair(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}
