package handler

import (
	"net/http"

	"github.com/sergiuosvat/x402-facilitator/types"
)

// Settle handles the settle operation: it verifies the payment intent first
// and then commits it to the ledger through the settlement coordinator.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {

	// Authenticate the request.
	if !h.authenticate(w, r) {
		return
	}

	// Decode and cross-check the request envelope.
	paymentPayload, paymentRequirements, ok := h.decodeEnvelope(w, r)
	if !ok {
		return
	}

	// Verify the payment intent before committing anything.
	verification, err := h.Verifier.Verify(r.Context(), paymentPayload.Payload, paymentRequirements)
	if err != nil {
		h.Logger.Error("settle verification failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !verification.IsValid {
		h.Metrics.ObserveSettle(false)
		h.writeJSON(w, types.SettleResponse{
			Success:     false,
			ErrorReason: types.SettleReason(verification.InvalidReason),
		})
		return
	}

	// Settle the verified intent.
	response, err := h.Coordinator.Settle(r.Context(), paymentPayload.Payload, paymentRequirements)
	if err != nil {
		h.Logger.Error("settle failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.Metrics.ObserveSettle(response.Success)
	h.writeJSON(w, response)
}
