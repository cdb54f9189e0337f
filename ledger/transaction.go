package ledger

import "encoding/json"

// MinRelayedTxVersion is the lowest transaction version that supports a
// delegated fee payer.
const MinRelayedTxVersion uint32 = 2

// Transaction is the on-chain transaction shape. Field order is part of the
// signing contract: the canonical signed bytes are the JSON serialization of
// the transaction in declaration order with both signature fields cleared and
// empty optional fields omitted. Clients sign exactly these bytes, so the
// layout must never change, including the omitempty markers.
type Transaction struct {
	Nonce             uint64 `json:"nonce"`
	Value             string `json:"value"`
	Receiver          string `json:"receiver"`
	Sender            string `json:"sender"`
	GasPrice          uint64 `json:"gasPrice"`
	GasLimit          uint64 `json:"gasLimit"`
	Data              []byte `json:"data,omitempty"`
	ChainID           string `json:"chainID"`
	Version           uint32 `json:"version"`
	Options           uint32 `json:"options,omitempty"`
	FeePayer          string `json:"feePayer,omitempty"`
	ValidAfter        int64  `json:"validAfter,omitempty"`
	ValidBefore       int64  `json:"validBefore,omitempty"`
	Signature         string `json:"signature,omitempty"`
	FeePayerSignature string `json:"feePayerSignature,omitempty"`
}

// SigningBytes returns the canonical bytes covered by both the sender
// signature and the fee-payer co-signature.
func (t *Transaction) SigningBytes() ([]byte, error) {
	unsigned := *t
	unsigned.Signature = ""
	unsigned.FeePayerSignature = ""
	return json.Marshal(&unsigned)
}
