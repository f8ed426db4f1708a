package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kirinyoku/tix-ledger/internal/domain"
)

// KeyOf converts an Ed25519 public key to a ledger identity key.
func KeyOf(public ed25519.PublicKey) (domain.Key, error) {
	var k domain.Key
	if len(public) != ed25519.PublicKeySize {
		return k, fmt.Errorf("public key has %d bytes, want %d", len(public), ed25519.PublicKeySize)
	}
	copy(k[:], public)
	return k, nil
}

// GenerateKeypair creates a new Ed25519 signing key.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes the private seed as hex to path with 0600
// permissions and the public key as hex to path+".pub".
func SaveKeypair(path string, private ed25519.PrivateKey) error {
	if err := os.WriteFile(path, []byte(hex.EncodeToString(private.Seed())+"\n"), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	public := private.Public().(ed25519.PublicKey)
	if err := os.WriteFile(path+".pub", []byte(hex.EncodeToString(public)+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}

func LoadKeypair(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// LoadOrGenerateKeypair loads the key at path, or generates and saves one
// if nothing is there. Reports whether the key is new.
func LoadOrGenerateKeypair(path string) (ed25519.PrivateKey, bool, error) {
	private, err := LoadKeypair(path)
	if err == nil {
		return private, false, nil
	}

	// A file that exists but fails to load is corrupt, not missing.
	if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, err
	}

	_, private, err = GenerateKeypair()
	if err != nil {
		return nil, false, err
	}

	if err := SaveKeypair(path, private); err != nil {
		return nil, false, err
	}

	return private, true, nil
}
