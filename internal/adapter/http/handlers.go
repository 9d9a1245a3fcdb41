package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/blob"
	"github.com/toastx/shredr-fun/internal/domain/webhook"
	"github.com/toastx/shredr-fun/internal/port/database"
	"github.com/toastx/shredr-fun/internal/port/messagequeue"
	"github.com/toastx/shredr-fun/internal/service"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB
	maxWebhookBodySize = 8 << 20 // Helius batches can be large
	healthCheckTimeout = 2 * time.Second
)

// WSAcceptor upgrades subscriber connections.
type WSAcceptor interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Relay    *service.RelayService
	Blobs    *service.BlobService
	Webhooks *service.WebhookService
	WS       WSAcceptor
	Store    database.Store
	Queue    messagequeue.Queue // nil when NATS is disabled
	Version  string
}

// ---------------------------------------------------------------------------
// Health & status
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status       string            `json:"status"`
	ClientsCount int               `json:"clientsCount"`
	Version      string            `json:"version"`
	Checks       map[string]string `json:"checks"`
}

// Health reports liveness, the subscriber count and dependency checks.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		ClientsCount: h.Relay.ClientsCount(),
		Version:      h.Version,
		Checks:       map[string]string{"database": "ok", "nats": "disabled"},
	}
	if err := h.Store.Ping(ctx); err != nil {
		resp.Checks["database"] = "unreachable"
		resp.Status = "degraded"
	}
	if h.Queue != nil {
		resp.Checks["nats"] = "ok"
		if !h.Queue.IsConnected() {
			resp.Checks["nats"] = "disconnected"
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type statusResponse struct {
	ClientsCount int       `json:"clientsCount"`
	Timestamp    time.Time `json:"timestamp"`
}

// Status returns the current subscriber count.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		ClientsCount: h.Relay.ClientsCount(),
		Timestamp:    time.Now().UTC(),
	})
}

// BroadcastStatus pushes a status event to every subscriber.
func (h *Handlers) BroadcastStatus(w http.ResponseWriter, r *http.Request) {
	n := h.Relay.BroadcastStatus(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{ClientsCount: n, Timestamp: time.Now().UTC()})
}

// ---------------------------------------------------------------------------
// Relay
// ---------------------------------------------------------------------------

// HandleWS upgrades the request to a subscriber WebSocket.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	h.WS.HandleWS(w, r)
}

// HeliusWebhook accepts one Helius delivery and broadcasts it.
func (h *Handlers) HeliusWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.Relay.Notify(r.Context(), json.RawMessage(body)); err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, webhook.Response{Message: "Webhook received and broadcast"})
}

// ---------------------------------------------------------------------------
// Webhook management
// ---------------------------------------------------------------------------

// CreateWebhook registers a Helius webhook.
func (h *Handlers) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[webhook.CreateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	created, err := h.Webhooks.Create(r.Context(), req)
	if err != nil {
		writeUpstreamError(w, err, "Failed to create webhook")
		return
	}
	writeJSON(w, http.StatusOK, webhook.Response{Message: "Webhook created: " + created.WebhookID})
}

// AddAddresses appends account addresses to a Helius webhook.
func (h *Handlers) AddAddresses(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[webhook.AddressRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if _, err := h.Webhooks.AddAddresses(r.Context(), req); err != nil {
		writeUpstreamError(w, err, "Failed to add addresses")
		return
	}
	writeJSON(w, http.StatusOK, webhook.Response{Message: "Addresses added successfully"})
}

// RemoveAddresses removes account addresses from a Helius webhook.
func (h *Handlers) RemoveAddresses(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[webhook.AddressRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if _, err := h.Webhooks.RemoveAddresses(r.Context(), req); err != nil {
		writeUpstreamError(w, err, "Failed to remove addresses")
		return
	}
	writeJSON(w, http.StatusOK, webhook.Response{Message: "Addresses removed successfully"})
}

// writeUpstreamError answers webhook management failures in the
// {"message": ...} envelope those endpoints use.
func writeUpstreamError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, webhook.Response{Message: validationMessage(err)})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, webhook.Response{Message: action + ": webhook not found"})
	case errors.Is(err, service.ErrUpstreamNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, webhook.Response{Message: action + ": " + err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, webhook.Response{Message: action + ": " + err.Error()})
	}
}

// ---------------------------------------------------------------------------
// Nonce blobs
// ---------------------------------------------------------------------------

// ListBlobs returns blobs newest first, paginated by limit and offset.
func (h *Handlers) ListBlobs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", blob.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	blobs, err := h.Blobs.List(r.Context(), blob.ListQuery{Limit: limit, Offset: offset})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if blobs == nil {
		blobs = []blob.NonceBlob{}
	}
	writeJSON(w, http.StatusOK, blobs)
}
