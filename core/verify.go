package core

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"log/slog"
	"math/big"
	"time"

	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/types"
)

// Verifier checks a payment intent against payment requirements. Every
// dependency is injected at construction time; a verifier without a gateway
// performs the pure checks only and skips the dry-run.
type Verifier struct {
	Gateway  ledger.Gateway
	Relayers *RelayerSelector
	ChainID  string
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewVerifier builds a verifier. Gateway and relayers may be nil; an empty
// chain identifier disables the chain check.
func NewVerifier(gateway ledger.Gateway, relayers *RelayerSelector, chainID string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{Gateway: gateway, Relayers: relayers, ChainID: chainID, Logger: logger, Now: time.Now}
}

// Verify runs the verification gates in order; the first failing gate wins
// and is reported through the invalid reason enum. Unexpected internal
// failures come back as an error instead. Verification has no persisted side
// effects; the optional dry-run is the only outbound call.
func (v *Verifier) Verify(ctx context.Context, intent types.Intent, req types.PaymentRequirements) (types.VerifyResponse, error) {

	now := v.Now()

	// Verify the intent is inside its validity window. Absent bounds impose
	// no constraint.
	if intent.ValidAfter > 0 && now.Unix() < intent.ValidAfter {
		return invalid(types.InvalidReasonNotYetValid), nil
	}
	if intent.ValidBefore > 0 && now.Unix() > intent.ValidBefore {
		return invalid(types.InvalidReasonExpired), nil
	}

	// Verify the intent targets this facilitator's chain.
	if v.ChainID != "" && intent.ChainID != v.ChainID {
		return invalid(types.InvalidReasonInvalidChainID), nil
	}

	// Decode the sender address; its bytes are the payer's public key.
	sender, err := ledger.DecodeAddress(intent.Sender)
	if err != nil {
		return invalid(types.InvalidReasonInvalidSenderAddress), nil
	}

	// Decode the receiver address.
	receiver, err := ledger.DecodeAddress(intent.Receiver)
	if err != nil {
		return invalid(types.InvalidReasonInvalidReceiverAddress), nil
	}

	// Decode the signature from hex.
	signature, err := hex.DecodeString(intent.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return invalid(types.InvalidReasonInvalidSignature), nil
	}

	// Rebuild the canonical signing bytes and verify the signature against
	// the sender's public key. The encoding is a strict contract shared with
	// the signer, including optional-field presence.
	tx := BuildTransaction(intent)
	signingBytes, err := tx.SigningBytes()
	if err != nil {
		return types.VerifyResponse{}, err
	}
	if !ed25519.Verify(sender.PubKey(), signingBytes, signature) {
		return invalid(types.InvalidReasonInvalidSignature), nil
	}

	// Decode the required recipient.
	payTo, err := ledger.DecodeAddress(req.PayTo)
	if err != nil {
		return invalid(types.InvalidReasonInvalidRequirementsPayTo), nil
	}

	// Decode the required minimum amount.
	minAmount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return invalid(types.InvalidReasonInvalidRequirementsAmount), nil
	}

	// When the instruction payload is not a token transfer, the intent's
	// direct receiver must be the required recipient.
	if !isTokenTransfer(intent.Data) && !receiver.Equal(payTo) {
		return invalid(types.InvalidReasonReceiverMismatch), nil
	}

	if req.Asset == types.AssetNative {
		// Native transfers compare the intent amount directly, with
		// arbitrary precision.
		amount, ok := new(big.Int).SetString(intent.Value, 10)
		if !ok {
			return invalid(types.InvalidReasonInvalidAmount), nil
		}
		if amount.Cmp(minAmount) < 0 {
			return invalid(types.InvalidReasonInsufficientAmount), nil
		}
	} else {
		// Token transfers are encoded in the instruction payload.
		transfer, reason := parseTokenTransfer(intent.Data)
		if reason != "" {
			return invalid(reason), nil
		}
		if reason := checkTokenTransfer(transfer, payTo, req.Asset, minAmount); reason != "" {
			return invalid(reason), nil
		}
	}

	// Dry-run the transfer when a gateway is available.
	if v.Gateway != nil {
		if reason, err := v.simulate(ctx, intent, sender, signature, req.MaxTimeoutSeconds); err != nil {
			return types.VerifyResponse{}, err
		} else if reason != "" {
			return invalid(reason), nil
		}
	}

	return types.VerifyResponse{IsValid: true, Payer: intent.Sender}, nil
}

// simulate submits the signed transaction for a dry-run and normalizes the
// outcome. A relayer co-signature is attached on a best-effort basis: not
// being able to obtain one here is logged and the dry-run proceeds without
// it, unlike during relayed settlement where the same failure is fatal.
func (v *Verifier) simulate(ctx context.Context, intent types.Intent, sender ledger.Address, signature []byte, timeoutSeconds int64) (types.InvalidReason, error) {
	tx := BuildTransaction(intent)
	tx.Signature = hex.EncodeToString(signature)

	if intent.FeePayer != "" && v.Relayers.Configured() {
		if err := attachRelayerSignature(&tx, sender, v.Relayers); err != nil {
			v.Logger.Warn("could not attach relayer signature for simulation",
				"payer", intent.Sender, "err", err)
		}
	}

	ctx, cancel := contextWithTimeout(ctx, timeoutSeconds)
	defer cancel()

	raw, err := v.Gateway.SimulateTransaction(ctx, &tx)
	if err != nil {
		v.Logger.Warn("simulation request failed", "payer", intent.Sender, "err", err)
		return types.InvalidReasonSimulationFailed, nil
	}
	if result := InterpretSimulation(raw); !result.Success {
		v.Logger.Info("simulation rejected transfer",
			"payer", intent.Sender, "receiver", intent.Receiver,
			"amount", intent.Value, "message", result.Message)
		return types.InvalidReasonSimulationFailed, nil
	}
	return "", nil
}

// BuildTransaction maps an intent onto the ledger transaction shape, without
// any signature attached.
func BuildTransaction(intent types.Intent) ledger.Transaction {
	var data []byte
	if intent.Data != "" {
		data = []byte(intent.Data)
	}
	return ledger.Transaction{
		Nonce:       intent.Nonce,
		Value:       intent.Value,
		Receiver:    intent.Receiver,
		Sender:      intent.Sender,
		GasPrice:    intent.GasPrice,
		GasLimit:    intent.GasLimit,
		Data:        data,
		ChainID:     intent.ChainID,
		Version:     intent.Version,
		Options:     intent.Options,
		FeePayer:    intent.FeePayer,
		ValidAfter:  intent.ValidAfter,
		ValidBefore: intent.ValidBefore,
	}
}

// attachRelayerSignature resolves the fee payer for the sender's shard and
// co-signs the canonical bytes. No other transaction field is touched.
func attachRelayerSignature(tx *ledger.Transaction, sender ledger.Address, relayers *RelayerSelector) error {
	signer, err := relayers.SignerFor(sender)
	if err != nil {
		return err
	}
	signingBytes, err := tx.SigningBytes()
	if err != nil {
		return err
	}
	tx.FeePayerSignature = hex.EncodeToString(signer.Sign(signingBytes))
	return nil
}

// contextWithTimeout bounds ledger calls with the requirement's timeout when
// one was given.
func contextWithTimeout(ctx context.Context, seconds int64) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// invalid builds a failed verify response with the given reason.
func invalid(reason types.InvalidReason) types.VerifyResponse {
	return types.VerifyResponse{IsValid: false, InvalidReason: reason}
}
