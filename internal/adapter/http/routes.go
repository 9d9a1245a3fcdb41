package http

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toastx/shredr-fun/internal/middleware"
	"github.com/toastx/shredr-fun/internal/port/cache"
)

// RouteOptions configures route-level middleware.
type RouteOptions struct {
	// WebhookToken must match the Authorization header of Helius
	// deliveries. Empty accepts any delivery.
	WebhookToken string
	// Idempotency stores replayable responses. Nil disables replay.
	Idempotency    cache.Cache
	IdempotencyTTL time.Duration
}

// MountRoutes registers all routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.HandleWS)

	r.Route("/webhook", func(r chi.Router) {
		r.With(middleware.WebhookToken(opts.WebhookToken, "Authorization")).
			Post("/helius", h.HeliusWebhook)

		r.Post("/create", h.CreateWebhook)
		r.Post("/address", h.AddAddresses)
		r.Delete("/address", h.RemoveAddresses)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/status/broadcast", h.BroadcastStatus)

		r.Route("/blobs", func(r chi.Router) {
			if opts.Idempotency != nil {
				r.Use(middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL))
			}
			r.Get("/", h.ListBlobs)
			r.Post("/", handleCreate(maxRequestBodySize, h.Blobs.Create))
			r.Get("/{id}", handleGet(h.Blobs.Get, "Blob not found"))
			r.Delete("/{id}", handleDelete(h.Blobs.Delete, "Blob not found"))
		})
	})
}
