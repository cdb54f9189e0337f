package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/store"
	"github.com/sergiuosvat/x402-facilitator/types"
)

// SettlementStore is the slice of the record store the coordinator uses.
// *store.Store satisfies it.
type SettlementStore interface {
	CreateIfAbsent(ctx context.Context, rec *store.Settlement) (*store.Settlement, bool, error)
	ReopenFailed(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status store.SettlementStatus, txHash string) error
}

// Coordinator owns the idempotent settlement state machine. It is the sole
// writer of settlement records: a record is created pending before any
// broadcast attempt, and moves to completed or failed exactly once per
// attempt, in that order.
type Coordinator struct {
	Store          SettlementStore
	Gateway        ledger.Gateway
	Relayers       *RelayerSelector
	SkipSimulation bool
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewCoordinator builds a coordinator. The skip-simulation override removes
// the pre-broadcast dry-run on the relayed path and is meant for controlled
// environments only; enabling it is logged so the missing safety gate stays
// auditable.
func NewCoordinator(st SettlementStore, gateway ledger.Gateway, relayers *RelayerSelector, skipSimulation bool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if skipSimulation {
		logger.Warn("pre-broadcast simulation is disabled for relayed settlements")
	}
	return &Coordinator{
		Store:          st,
		Gateway:        gateway,
		Relayers:       relayers,
		SkipSimulation: skipSimulation,
		Logger:         logger,
		Now:            time.Now,
	}
}

// Settle commits a verified intent to the ledger exactly once per unique
// signed intent. A repeated call for an already completed settlement returns
// the stored transaction hash without a second broadcast; a call racing an
// in-flight settlement fails with settlement_in_progress; a previously
// failed settlement may be retried.
func (c *Coordinator) Settle(ctx context.Context, intent types.Intent, req types.PaymentRequirements) (types.SettleResponse, error) {

	// Decode the signature; its hash is the settlement identifier.
	signature, err := hex.DecodeString(intent.Signature)
	if err != nil {
		return settleError(types.ErrorReasonInvalidPaymentPayload), nil
	}
	id := store.SettlementID(signature)

	// Insert the pending record, atomically yielding to an existing one.
	rec := &store.Settlement{
		ID:          id,
		Signature:   intent.Signature,
		Payer:       intent.Sender,
		Status:      store.StatusPending,
		Amount:      req.Amount,
		Asset:       req.Asset,
		ValidBefore: intent.ValidBefore,
	}
	existing, created, err := c.Store.CreateIfAbsent(ctx, rec)
	if err != nil {
		return types.SettleResponse{}, fmt.Errorf("failed to record settlement: %w", err)
	}
	if !created {
		switch existing.Status {
		case store.StatusCompleted:
			return types.SettleResponse{Success: true, Transaction: existing.TxHash, Payer: existing.Payer}, nil
		case store.StatusPending:
			return settleError(types.ErrorReasonSettlementInProgress), nil
		case store.StatusFailed:
			// A failed settlement may be retried under the same identifier,
			// but only one concurrent retry may reopen the record; the rest
			// see it pending.
			reopened, err := c.Store.ReopenFailed(ctx, id)
			if err != nil {
				return types.SettleResponse{}, fmt.Errorf("failed to reopen settlement: %w", err)
			}
			if !reopened {
				return settleError(types.ErrorReasonSettlementInProgress), nil
			}
		}
	}

	ctx, cancel := contextWithTimeout(ctx, req.MaxTimeoutSeconds)
	defer cancel()

	// Broadcast relayed when the intent designated a fee payer and one is
	// configured, directly otherwise.
	var txHash string
	var reason types.ErrorReason
	if intent.FeePayer != "" && c.Relayers.Configured() {
		txHash, reason, err = c.settleRelayed(ctx, intent)
	} else {
		txHash, reason, err = c.settleDirect(ctx, intent)
	}
	if err != nil {
		// Internal signing errors must also move the record out of pending,
		// so the identifier is never stuck.
		c.markFailed(ctx, id)
		return types.SettleResponse{}, err
	}
	if reason != "" {
		// The record must leave pending even when the cause was a network
		// or signing error, so the identifier is never stuck.
		c.markFailed(ctx, id)
		return settleError(reason), nil
	}

	if err := c.Store.UpdateStatus(ctx, id, store.StatusCompleted, txHash); err != nil {
		return types.SettleResponse{}, fmt.Errorf("failed to finalize settlement: %w", err)
	}
	c.Logger.Info("settlement completed",
		"id", id, "payer", intent.Sender, "receiver", intent.Receiver,
		"amount", req.Amount, "asset", req.Asset, "txHash", txHash)
	return types.SettleResponse{Success: true, Transaction: txHash, Payer: intent.Sender}, nil
}

// settleDirect broadcasts the sender-signed transaction as-is.
func (c *Coordinator) settleDirect(ctx context.Context, intent types.Intent) (string, types.ErrorReason, error) {
	tx := BuildTransaction(intent)
	tx.Signature = intent.Signature

	txHash, err := c.Gateway.SendTransaction(ctx, &tx)
	if err != nil {
		c.Logger.Error("broadcast failed", "payer", intent.Sender, "err", err)
		return "", types.ErrorReasonSettlementFailed, nil
	}
	return txHash, "", nil
}

// settleRelayed co-signs the transaction as the fee payer before broadcast.
// The intent must have designated the fee payer before signing: the signed
// bytes include the fee-payer field, so a facilitator-injected fee payer
// would break the sender's signature.
func (c *Coordinator) settleRelayed(ctx context.Context, intent types.Intent) (string, types.ErrorReason, error) {
	if intent.FeePayer == "" {
		return "", types.ErrorReasonMissingFeePayer, nil
	}
	if intent.Version < ledger.MinRelayedTxVersion {
		return "", types.ErrorReasonUnsupportedTxVersion, nil
	}

	sender, err := ledger.DecodeAddress(intent.Sender)
	if err != nil {
		return "", types.ErrorReasonInvalidPaymentPayload, nil
	}

	// The declared fee payer must be the one this facilitator would resolve
	// for the sender's shard; clients cannot nominate arbitrary fee payers.
	signer, err := c.Relayers.SignerFor(sender)
	if err != nil {
		c.Logger.Error("no relayer for payer", "payer", intent.Sender, "err", err)
		return "", types.ErrorReasonRelayerUnconfigured, nil
	}
	if signer.Address().String() != intent.FeePayer {
		c.Logger.Warn("declared fee payer does not match configured relayer",
			"payer", intent.Sender, "declared", intent.FeePayer, "resolved", signer.Address().String())
		return "", types.ErrorReasonRelayerMismatch, nil
	}

	tx := BuildTransaction(intent)
	tx.Signature = intent.Signature
	signingBytes, err := coSigningBytes(&tx)
	if err != nil {
		return "", "", err
	}
	tx.FeePayerSignature = hex.EncodeToString(signer.Sign(signingBytes))

	if c.SkipSimulation {
		c.Logger.Warn("skipping pre-broadcast simulation", "payer", intent.Sender)
	} else {
		raw, err := c.Gateway.SimulateTransaction(ctx, &tx)
		if err != nil {
			c.Logger.Error("pre-broadcast simulation failed", "payer", intent.Sender, "err", err)
			return "", types.ErrorReasonSimulationFailed, nil
		}
		if result := InterpretSimulation(raw); !result.Success {
			c.Logger.Warn("pre-broadcast simulation rejected transfer",
				"payer", intent.Sender, "message", result.Message)
			return "", types.ErrorReasonSimulationFailed, nil
		}
	}

	txHash, err := c.Gateway.SendTransaction(ctx, &tx)
	if err != nil {
		c.Logger.Error("relayed broadcast failed", "payer", intent.Sender, "err", err)
		return "", types.ErrorReasonSettlementFailed, nil
	}
	return txHash, "", nil
}

// coSigningBytes computes the canonical bytes the fee payer co-signs. This
// function can be overridden in tests.
var coSigningBytes = func(tx *ledger.Transaction) ([]byte, error) {
	return tx.SigningBytes()
}

// markFailed moves the record out of pending after a failed attempt.
func (c *Coordinator) markFailed(ctx context.Context, id string) {
	if err := c.Store.UpdateStatus(ctx, id, store.StatusFailed, ""); err != nil {
		c.Logger.Error("failed to mark settlement failed", "id", id, "err", err)
	}
}

// settleError builds a failed settle response with the given reason.
func settleError(reason types.ErrorReason) types.SettleResponse {
	return types.SettleResponse{Success: false, ErrorReason: reason}
}
