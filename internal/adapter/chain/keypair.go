package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing pair in the network's conventional layout:
// a 64-byte private key whose second half is the public key, and the
// public key base58-encoded as the account address.
type Keypair struct {
	Address    string
	PrivateKey ed25519.PrivateKey
}

// GenerateKeypair creates a fresh keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{
		Address:    base58.Encode(pub),
		PrivateKey: priv,
	}, nil
}

// ImportKeypair parses a private key given as base58 or hex. Accepts the
// full 64-byte key or a 32-byte seed.
func ImportKeypair(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil || (len(raw) != ed25519.PrivateKeySize && len(raw) != ed25519.SeedSize) {
		raw, err = hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("private key is neither base58 nor hex")
		}
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}

	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{
		Address:    base58.Encode(pub),
		PrivateKey: priv,
	}, nil
}

// KeypairFromPrivateKey rebuilds a Keypair from raw 64-byte key material
// (e.g. freshly decrypted ciphertext).
func KeypairFromPrivateKey(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{
		Address:    base58.Encode(pub),
		PrivateKey: priv,
	}, nil
}

// ExportBase58 returns the full private key base58-encoded.
func (k *Keypair) ExportBase58() string {
	return base58.Encode(k.PrivateKey)
}

// ValidAddress reports whether addr is a well-formed account address
// (base58, 32 bytes).
func ValidAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	return err == nil && len(raw) == 32
}

// decodeAddress decodes a base58 account address into its 32-byte form.
func decodeAddress(addr string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(addr)
	if err != nil {
		return out, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("address %q is %d bytes, want 32", addr, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
