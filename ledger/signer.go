package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

// Signer holds an ed25519 signing capability together with its address.
type Signer struct {
	key     ed25519.PrivateKey
	address Address
}

// NewSigner builds a signer from an ed25519 private key.
func NewSigner(key ed25519.PrivateKey) (Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return Signer{}, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	addr, err := NewAddress(key.Public().(ed25519.PublicKey))
	if err != nil {
		return Signer{}, err
	}
	return Signer{key: key, address: addr}, nil
}

// Address returns the signer's public address.
func (s Signer) Address() Address {
	return s.address
}

// Sign signs the given bytes.
func (s Signer) Sign(b []byte) []byte {
	return ed25519.Sign(s.key, b)
}

// LoadSignerFromPEM reads a wallet key file. The PEM body decodes to the
// ASCII hex of the 32-byte seed, optionally followed by the hex public key.
func LoadSignerFromPEM(path string) (Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Signer{}, fmt.Errorf("failed to read key file %s: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return Signer{}, fmt.Errorf("no PEM block found in %s", path)
	}
	decoded := make([]byte, hex.DecodedLen(len(block.Bytes)))
	n, err := hex.Decode(decoded, block.Bytes)
	if err != nil {
		return Signer{}, fmt.Errorf("invalid hex key material in %s: %w", path, err)
	}
	if n < ed25519.SeedSize {
		return Signer{}, fmt.Errorf("key material in %s is %d bytes, want at least %d", path, n, ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(decoded[:ed25519.SeedSize])
	return NewSigner(key)
}
