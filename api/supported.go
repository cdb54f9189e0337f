package handler

import (
	"net/http"

	"github.com/sergiuosvat/x402-facilitator/types"
)

// Supported reports the (version, scheme, network) combinations this
// facilitator settles.
func (h *Handler) Supported(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, types.SupportedResponse{
		Kinds: []types.SupportedKind{
			{
				X402Version: types.X402Version1,
				Scheme:      types.SchemeExact,
				Network:     h.Network,
			},
		},
	})
}
