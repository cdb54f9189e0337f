package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergiuosvat/x402-facilitator/ledger"
)

// ErrNoRelayerConfigured is returned when no fee-payer identity can co-sign
// for the requested payer.
var ErrNoRelayerConfigured = errors.New("no relayer configured for payer")

// relayerMode discriminates how fee-payer identities were configured.
type relayerMode int

const (
	relayerModeNone relayerMode = iota
	relayerModeSingle
	relayerModeSharded
)

// RelayerSelector resolves which fee-payer identity must co-sign for a given
// payer address. The identity map is built once at startup and is read-only
// afterwards, so lookups are safe from concurrent settlements.
type RelayerSelector struct {
	mode   relayerMode
	single ledger.Signer
	shards map[uint32]ledger.Signer
}

// NewShardedRelayerSelector builds a selector from per-shard signers. Signers
// are keyed by the shard of their own address.
func NewShardedRelayerSelector(signers []ledger.Signer) *RelayerSelector {
	shards := make(map[uint32]ledger.Signer, len(signers))
	for _, signer := range signers {
		shards[signer.Address().Shard()] = signer
	}
	return &RelayerSelector{mode: relayerModeSharded, shards: shards}
}

// NewSingleRelayerSelector builds a selector with one global fee payer.
func NewSingleRelayerSelector(signer ledger.Signer) *RelayerSelector {
	return &RelayerSelector{mode: relayerModeSingle, single: signer}
}

// NewEmptyRelayerSelector builds a selector with no fee payer at all. Every
// resolution fails with ErrNoRelayerConfigured.
func NewEmptyRelayerSelector() *RelayerSelector {
	return &RelayerSelector{mode: relayerModeNone}
}

// LoadRelayerSelector builds the selector from local key material. When
// keysDir is set, every *.pem file in it is loaded and keyed by the shard of
// its own address; otherwise the single fallback key is used when given;
// otherwise the selector is empty.
func LoadRelayerSelector(keysDir, fallbackPEM string) (*RelayerSelector, error) {
	if keysDir != "" {
		entries, err := os.ReadDir(keysDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read relayer keys directory: %w", err)
		}
		var signers []ledger.Signer
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pem") {
				continue
			}
			signer, err := ledger.LoadSignerFromPEM(filepath.Join(keysDir, entry.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to load relayer key %s: %w", entry.Name(), err)
			}
			signers = append(signers, signer)
		}
		if len(signers) > 0 {
			return NewShardedRelayerSelector(signers), nil
		}
	}
	if fallbackPEM != "" {
		signer, err := ledger.LoadSignerFromPEM(fallbackPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load relayer key %s: %w", fallbackPEM, err)
		}
		return NewSingleRelayerSelector(signer), nil
	}
	return NewEmptyRelayerSelector(), nil
}

// Configured reports whether any fee-payer identity is available.
func (s *RelayerSelector) Configured() bool {
	return s != nil && s.mode != relayerModeNone
}

// SignerFor resolves the fee-payer identity responsible for the payer's
// shard, falling back to the single configured signer.
func (s *RelayerSelector) SignerFor(payer ledger.Address) (ledger.Signer, error) {
	if s == nil {
		return ledger.Signer{}, ErrNoRelayerConfigured
	}
	switch s.mode {
	case relayerModeSharded:
		signer, ok := s.shards[payer.Shard()]
		if !ok {
			return ledger.Signer{}, fmt.Errorf("%w: shard %d has no signer", ErrNoRelayerConfigured, payer.Shard())
		}
		return signer, nil
	case relayerModeSingle:
		return s.single, nil
	default:
		return ledger.Signer{}, ErrNoRelayerConfigured
	}
}
