package types

import "encoding/json"

// RequestBody is the request body shared by the verify and settle operations.
type RequestBody struct {
	X402Version         X402Version     `json:"x402Version"`
	PaymentPayload      json.RawMessage `json:"paymentPayload"`
	PaymentRequirements json.RawMessage `json:"paymentRequirements"`
}

// PaymentPayload is the payment payload carried in the request body.
type PaymentPayload struct {
	Scheme  Scheme  `json:"scheme"`
	Network Network `json:"network"`
	Payload Intent  `json:"payload"`
}

// Intent is the signed transfer intent produced by the payer off-chain.
//
// The signature is computed over the canonical byte encoding of every other
// field in declaration order, with empty optional fields omitted. The
// fee-payer field participates in the signed bytes when present, so a payer
// that wants its fees delegated must designate the fee payer before signing.
type Intent struct {
	Nonce       uint64 `json:"nonce"`
	Value       string `json:"value"`
	Receiver    string `json:"receiver"`
	Sender      string `json:"sender"`
	GasPrice    uint64 `json:"gasPrice"`
	GasLimit    uint64 `json:"gasLimit"`
	Data        string `json:"data,omitempty"`
	ChainID     string `json:"chainID"`
	Version     uint32 `json:"version"`
	Options     uint32 `json:"options,omitempty"`
	FeePayer    string `json:"feePayer,omitempty"`
	ValidAfter  int64  `json:"validAfter,omitempty"`
	ValidBefore int64  `json:"validBefore,omitempty"`
	Signature   string `json:"signature"`
}

// PaymentRequirements is the caller's specification of the expected payment.
type PaymentRequirements struct {
	Scheme            Scheme  `json:"scheme"`
	Network           Network `json:"network"`
	PayTo             string  `json:"payTo"`
	Amount            string  `json:"amount"`
	Asset             string  `json:"asset"`
	MaxTimeoutSeconds int64   `json:"maxTimeoutSeconds"`
}

// VerifyResponse is the response of the verify operation.
type VerifyResponse struct {
	IsValid       bool          `json:"isValid"`
	Payer         string        `json:"payer,omitempty"`
	InvalidReason InvalidReason `json:"invalidReason,omitempty"`
}

// SettleResponse is the response of the settle operation.
type SettleResponse struct {
	Success     bool        `json:"success"`
	Transaction string      `json:"transaction,omitempty"`
	Payer       string      `json:"payer,omitempty"`
	ErrorReason ErrorReason `json:"errorReason,omitempty"`
}

// SupportedKind is one supported (version, scheme, network) combination.
type SupportedKind struct {
	X402Version X402Version `json:"x402Version"`
	Scheme      Scheme      `json:"scheme"`
	Network     Network     `json:"network"`
}

// SupportedResponse is the response of the supported operation.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}
