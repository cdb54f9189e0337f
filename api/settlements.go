package handler

import (
	"encoding/json"
	"net/http"
)

// markReadRequest is the body of the mark-as-read operation.
type markReadRequest struct {
	IDs []string `json:"ids"`
}

// UnreadSettlements returns completed settlements no consumer has read yet.
// This is the pull surface for downstream event consumers; they never write
// settlement records beyond flipping the read flag.
func (h *Handler) UnreadSettlements(w http.ResponseWriter, r *http.Request) {

	// Authenticate the request.
	if !h.authenticate(w, r) {
		return
	}

	recs, err := h.Store.GetUnread(r.Context())
	if err != nil {
		h.Logger.Error("failed to list unread settlements", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, recs)
}

// MarkSettlementsRead flips the read flag on the given settlement records.
func (h *Handler) MarkSettlementsRead(w http.ResponseWriter, r *http.Request) {

	// Authenticate the request.
	if !h.authenticate(w, r) {
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.MarkAsRead(r.Context(), req.IDs); err != nil {
		h.Logger.Error("failed to mark settlements read", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]bool{"ok": true})
}
