package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers into the HTTP surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Post("/verify", h.Verify)
	r.Post("/settle", h.Settle)
	r.Get("/supported", h.Supported)
	r.Get("/settlements/unread", h.UnreadSettlements)
	r.Post("/settlements/read", h.MarkSettlementsRead)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
