package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sergiuosvat/x402-facilitator/auth"
	"github.com/sergiuosvat/x402-facilitator/core"
	"github.com/sergiuosvat/x402-facilitator/metrics"
	"github.com/sergiuosvat/x402-facilitator/store"
	"github.com/sergiuosvat/x402-facilitator/types"
	"github.com/sergiuosvat/x402-facilitator/utils"
)

// Handler bundles the HTTP handlers with their injected dependencies.
type Handler struct {
	Auth        *auth.Authenticator
	Verifier    *core.Verifier
	Coordinator *core.Coordinator
	Store       *store.Store
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Network     types.Network
}

// New builds the handler set.
func New(a *auth.Authenticator, verifier *core.Verifier, coordinator *core.Coordinator, st *store.Store, m *metrics.Metrics, logger *slog.Logger, network types.Network) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Auth:        a,
		Verifier:    verifier,
		Coordinator: coordinator,
		Store:       st,
		Metrics:     m,
		Logger:      logger,
		Network:     network,
	}
}

// decodeEnvelope decodes and cross-checks the shared request envelope. It
// writes the HTTP error response itself and reports whether the caller
// should continue.
func (h *Handler) decodeEnvelope(w http.ResponseWriter, r *http.Request) (types.PaymentPayload, types.PaymentRequirements, bool) {

	var zeroPayload types.PaymentPayload
	var zeroReqs types.PaymentRequirements

	// Decode the request body.
	var requestBody types.RequestBody
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return zeroPayload, zeroReqs, false
	}

	// Check the x402 version.
	if requestBody.X402Version != types.X402Version1 {
		http.Error(w, "unsupported x402 version", http.StatusNotImplemented)
		return zeroPayload, zeroReqs, false
	}

	// Unmarshal the payment payload.
	var paymentPayload types.PaymentPayload
	if err := json.Unmarshal(requestBody.PaymentPayload, &paymentPayload); err != nil {
		http.Error(w, "failed to unmarshal payment payload", http.StatusBadRequest)
		return zeroPayload, zeroReqs, false
	}

	// Unmarshal the payment requirements.
	var paymentRequirements types.PaymentRequirements
	if err := json.Unmarshal(requestBody.PaymentRequirements, &paymentRequirements); err != nil {
		http.Error(w, "failed to unmarshal payment requirements", http.StatusBadRequest)
		return zeroPayload, zeroReqs, false
	}

	// Check the payment payload and requirements scheme.
	if paymentPayload.Scheme != paymentRequirements.Scheme {
		http.Error(w, "payment scheme does not match requirements scheme", http.StatusBadRequest)
		return zeroPayload, zeroReqs, false
	}

	// Check the payment payload and requirements network.
	if paymentPayload.Network != paymentRequirements.Network {
		http.Error(w, "payment network does not match requirements network", http.StatusBadRequest)
		return zeroPayload, zeroReqs, false
	}

	// Check the payment scheme.
	if paymentPayload.Scheme != types.SchemeExact {
		http.Error(w, "unsupported payment scheme", http.StatusNotImplemented)
		return zeroPayload, zeroReqs, false
	}

	// Check the payment network.
	if paymentPayload.Network != h.Network {
		http.Error(w, "unsupported payment network", http.StatusNotImplemented)
		return zeroPayload, zeroReqs, false
	}

	return paymentPayload, paymentRequirements, true
}

// authenticate runs the configured authenticator and writes the error
// response on failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) bool {
	if h.Auth == nil {
		return true
	}
	if err := h.Auth.Authenticate(r); err != nil {
		writeStatusError(w, err)
		return false
	}
	return true
}

// writeStatusError maps an error onto its HTTP status, defaulting to 500.
func writeStatusError(w http.ResponseWriter, err error) {
	var se utils.StatusError
	if errors.As(err, &se) {
		http.Error(w, err.Error(), se.Status())
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// writeJSON marshals the response and writes it with an OK status.
func (h *Handler) writeJSON(w http.ResponseWriter, response any) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(responseBytes); err != nil {
		// Header already written so we log the error.
		h.Logger.Error("failed to write response", "err", err)
	}
}
