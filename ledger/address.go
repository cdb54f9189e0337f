package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressHRP is the human-readable prefix of ledger addresses.
const AddressHRP = "erd"

// AddressLen is the byte length of an address, which is also the length of
// the ed25519 public key the address encodes.
const AddressLen = 32

// Address is a ledger address. The address bytes are the account's ed25519
// public key, so signature verification needs nothing beyond the address.
type Address struct {
	bytes []byte
}

// NewAddress wraps raw address bytes.
func NewAddress(b []byte) (Address, error) {
	if len(b) != AddressLen {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(b))
	}
	buf := make([]byte, AddressLen)
	copy(buf, b)
	return Address{bytes: buf}, nil
}

// DecodeAddress parses a bech32 address string.
func DecodeAddress(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != AddressHRP {
		return Address{}, fmt.Errorf("invalid address prefix %q, want %q", hrp, AddressHRP)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(conv)
}

// AddressFromHex parses a hex-encoded address, as it appears inside
// token-transfer instruction payloads.
func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex address: %w", err)
	}
	return NewAddress(b)
}

// String encodes the address as bech32.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	return a.bytes
}

// PubKey returns the ed25519 public key the address encodes.
func (a Address) PubKey() ed25519.PublicKey {
	return ed25519.PublicKey(a.bytes)
}

// Equal reports whether two addresses have the same bytes.
func (a Address) Equal(other Address) bool {
	if len(a.bytes) != len(other.bytes) {
		return false
	}
	for i := range a.bytes {
		if a.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the address is the uninitialized zero value.
func (a Address) IsZero() bool {
	return len(a.bytes) == 0
}

// Shard derives the address partition from the last byte of the public key.
// The low two bits select among shards 0..2; the unused value 3 is folded
// down to a single bit, matching the ledger's three-shard routing.
func (a Address) Shard() uint32 {
	last := a.bytes[len(a.bytes)-1]
	shard := uint32(last & 0x03)
	if shard > 2 {
		shard = uint32(last & 0x01)
	}
	return shard
}
