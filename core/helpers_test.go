package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/types"
)

// newTestKey generates a fresh ed25519 key and its signer.
func newTestKey(t *testing.T) (ledger.Signer, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ledger.NewSigner(priv)
	require.NoError(t, err)
	return signer, priv
}

// newTestSigner generates a fresh ed25519 signing identity.
func newTestSigner(t *testing.T) ledger.Signer {
	t.Helper()
	signer, _ := newTestKey(t)
	return signer
}

// newTestSignerInShard generates signing identities until one lands in the
// requested shard.
func newTestSignerInShard(t *testing.T, shard uint32) ledger.Signer {
	t.Helper()
	for i := 0; i < 1000; i++ {
		signer := newTestSigner(t)
		if signer.Address().Shard() == shard {
			return signer
		}
	}
	t.Fatalf("could not generate a signer in shard %d", shard)
	return ledger.Signer{}
}

// signIntent computes the canonical signing bytes of the intent and attaches
// the sender's signature.
func signIntent(t *testing.T, intent *types.Intent, sender ledger.Signer) {
	t.Helper()
	tx := BuildTransaction(*intent)
	signingBytes, err := tx.SigningBytes()
	require.NoError(t, err)
	intent.Signature = hex.EncodeToString(sender.Sign(signingBytes))
}

// nativeIntent builds a signed native-coin transfer intent.
func nativeIntent(t *testing.T, sender ledger.Signer, receiver string, amount string) types.Intent {
	t.Helper()
	intent := types.Intent{
		Nonce:    7,
		Value:    amount,
		Receiver: receiver,
		Sender:   sender.Address().String(),
		GasPrice: 1000000000,
		GasLimit: 50000,
		ChainID:  "1",
		Version:  1,
	}
	signIntent(t, &intent, sender)
	return intent
}

// tokenIntent builds a signed token transfer intent carrying the given
// instruction payload. Token transfers address the sender's own account and
// carry the real recipient inside the payload.
func tokenIntent(t *testing.T, sender ledger.Signer, data string) types.Intent {
	t.Helper()
	intent := types.Intent{
		Nonce:    7,
		Value:    "0",
		Receiver: sender.Address().String(),
		Sender:   sender.Address().String(),
		GasPrice: 1000000000,
		GasLimit: 500000,
		Data:     data,
		ChainID:  "1",
		Version:  1,
	}
	signIntent(t, &intent, sender)
	return intent
}

// nativeRequirements builds payment requirements for a native transfer.
func nativeRequirements(payTo string, amount string) types.PaymentRequirements {
	return types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           types.NetworkMultiversX,
		PayTo:             payTo,
		Amount:            amount,
		Asset:             types.AssetNative,
		MaxTimeoutSeconds: 5,
	}
}

// tokenTransferData assembles a token transfer instruction payload.
func tokenTransferData(receiver ledger.Address, ticker string, nonceHex string, amountHex string) string {
	return tokenTransferOpcode +
		"@" + hex.EncodeToString(receiver.Bytes()) +
		"@01" +
		"@" + hex.EncodeToString([]byte(ticker)) +
		"@" + nonceHex +
		"@" + amountHex
}
