package types

// X402Version is the x402 version enum.
type X402Version int

const (
	X402Version1 X402Version = 1
)

// Scheme is the scheme enum.
type Scheme string

const (
	SchemeExact Scheme = "exact"
)

// Network is the network enum.
type Network string

const (
	NetworkMultiversX       Network = "multiversx"
	NetworkMultiversXDevnet Network = "multiversx-devnet"
)

// AssetNative identifies the ledger's base coin in payment requirements.
// Any other asset value is treated as a fungible token ticker.
const AssetNative = "native"

// InvalidReason is the invalid reason enum returned by the verify operation.
type InvalidReason string

const (
	InvalidReasonInvalidX402Version            InvalidReason = "invalid_x402_version"
	InvalidReasonInvalidScheme                 InvalidReason = "invalid_scheme"
	InvalidReasonInvalidNetwork                InvalidReason = "invalid_network"
	InvalidReasonInvalidPaymentPayload         InvalidReason = "invalid_payment_payload"
	InvalidReasonInvalidPaymentRequirements    InvalidReason = "invalid_payment_requirements"
	InvalidReasonInvalidSchemeMismatch         InvalidReason = "invalid_scheme_mismatch"
	InvalidReasonInvalidNetworkMismatch        InvalidReason = "invalid_network_mismatch"
	InvalidReasonInvalidSenderAddress          InvalidReason = "invalid_sender_address"
	InvalidReasonInvalidReceiverAddress        InvalidReason = "invalid_receiver_address"
	InvalidReasonInvalidAmount                 InvalidReason = "invalid_amount"
	InvalidReasonInvalidRequirementsAmount     InvalidReason = "invalid_requirements_amount"
	InvalidReasonInvalidRequirementsPayTo      InvalidReason = "invalid_requirements_pay_to_address"
	InvalidReasonInvalidChainID                InvalidReason = "invalid_chain_id"
	InvalidReasonNotYetValid                   InvalidReason = "not_yet_valid"
	InvalidReasonExpired                       InvalidReason = "expired"
	InvalidReasonInvalidSignature              InvalidReason = "invalid_signature"
	InvalidReasonReceiverMismatch              InvalidReason = "receiver_mismatch"
	InvalidReasonInsufficientAmount            InvalidReason = "insufficient_amount"
	InvalidReasonNotATokenTransfer             InvalidReason = "not_a_token_transfer"
	InvalidReasonMalformedTransferData         InvalidReason = "malformed_transfer_data"
	InvalidReasonTokenReceiverMismatch         InvalidReason = "token_receiver_mismatch"
	InvalidReasonTokenMismatch                 InvalidReason = "token_mismatch"
	InvalidReasonInsufficientTokenAmount       InvalidReason = "insufficient_token_amount"
	InvalidReasonSimulationFailed              InvalidReason = "simulation_failed"
)

// ErrorReason is the error reason enum returned by the settle operation.
type ErrorReason string

const (
	ErrorReasonInvalidX402Version         ErrorReason = "invalid_x402_version"
	ErrorReasonInvalidScheme              ErrorReason = "invalid_scheme"
	ErrorReasonInvalidNetwork             ErrorReason = "invalid_network"
	ErrorReasonInvalidPaymentPayload      ErrorReason = "invalid_payment_payload"
	ErrorReasonInvalidPaymentRequirements ErrorReason = "invalid_payment_requirements"
	ErrorReasonSettlementInProgress       ErrorReason = "settlement_in_progress"
	ErrorReasonMissingFeePayer            ErrorReason = "missing_fee_payer"
	ErrorReasonUnsupportedTxVersion       ErrorReason = "unsupported_tx_version"
	ErrorReasonRelayerMismatch            ErrorReason = "relayer_mismatch"
	ErrorReasonRelayerUnconfigured        ErrorReason = "relayer_unconfigured"
	ErrorReasonSimulationFailed           ErrorReason = "simulation_failed"
	ErrorReasonSettlementFailed           ErrorReason = "settlement_failed"
)

// SettleReason maps a verify invalid reason onto the settle error enum. The
// settle operation verifies the payment first, so its error space includes
// every verification failure.
func SettleReason(r InvalidReason) ErrorReason {
	return ErrorReason(r)
}
