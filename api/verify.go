package handler

import (
	"net/http"
)

// Verify handles the verify operation: it checks the payment intent against
// the payment requirements without settling anything. Domain failures are
// reported with an OK status and an invalid reason; only transport failures
// use HTTP error codes.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {

	// Authenticate the request.
	if !h.authenticate(w, r) {
		return
	}

	// Decode and cross-check the request envelope.
	paymentPayload, paymentRequirements, ok := h.decodeEnvelope(w, r)
	if !ok {
		return
	}

	// Verify the payment intent.
	response, err := h.Verifier.Verify(r.Context(), paymentPayload.Payload, paymentRequirements)
	if err != nil {
		h.Logger.Error("verify failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.Metrics.ObserveVerify(response.IsValid)
	h.writeJSON(w, response)
}
