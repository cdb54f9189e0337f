package core

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/types"
)

// tokenTransferOpcode is the instruction name of a multi-token transfer.
const tokenTransferOpcode = "MultiESDTNFTTransfer"

// tokenTransferMinFields is the field count of a transfer carrying a single
// token: opcode, receiver, topic count, token identifier, token nonce, amount.
const tokenTransferMinFields = 6

// tokenTransfer is the first transfer decoded from an instruction payload.
// Additional token entries may follow in the payload but only the first one
// is validated against the payment requirements.
type tokenTransfer struct {
	Receiver ledger.Address
	Ticker   string
	Nonce    []byte
	Amount   *big.Int
}

// isTokenTransfer reports whether the instruction payload encodes a
// multi-token transfer at all.
func isTokenTransfer(data string) bool {
	return strings.HasPrefix(data, tokenTransferOpcode+"@")
}

// parseTokenTransfer decodes the first transfer from an "@"-separated
// instruction payload. A non-empty reason means the payload is not a valid
// token transfer.
func parseTokenTransfer(data string) (tokenTransfer, types.InvalidReason) {
	fields := strings.Split(data, "@")
	if fields[0] != tokenTransferOpcode {
		return tokenTransfer{}, types.InvalidReasonNotATokenTransfer
	}
	if len(fields) < tokenTransferMinFields {
		return tokenTransfer{}, types.InvalidReasonMalformedTransferData
	}

	receiver, err := ledger.AddressFromHex(fields[1])
	if err != nil {
		return tokenTransfer{}, types.InvalidReasonMalformedTransferData
	}

	tickerBytes, err := hex.DecodeString(fields[3])
	if err != nil {
		return tokenTransfer{}, types.InvalidReasonMalformedTransferData
	}

	nonce, err := hex.DecodeString(fields[4])
	if err != nil {
		return tokenTransfer{}, types.InvalidReasonMalformedTransferData
	}

	amount, ok := new(big.Int).SetString(fields[5], 16)
	if !ok {
		return tokenTransfer{}, types.InvalidReasonMalformedTransferData
	}

	return tokenTransfer{
		Receiver: receiver,
		Ticker:   string(tickerBytes),
		Nonce:    nonce,
		Amount:   amount,
	}, ""
}

// checkTokenTransfer validates the decoded transfer against the payment
// requirements: recipient, token identifier (case-sensitive) and minimum
// amount, in that order.
func checkTokenTransfer(transfer tokenTransfer, payTo ledger.Address, asset string, minAmount *big.Int) types.InvalidReason {
	if !transfer.Receiver.Equal(payTo) {
		return types.InvalidReasonTokenReceiverMismatch
	}
	if transfer.Ticker != asset {
		return types.InvalidReasonTokenMismatch
	}
	if transfer.Amount.Cmp(minAmount) < 0 {
		return types.InvalidReasonInsufficientTokenAmount
	}
	return ""
}
